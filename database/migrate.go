// Package database owns the credential store schema and applies it with goose.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Open returns a database/sql handle backed by pgx whose search_path is pinned to
// schema, so unqualified migration statements land in that schema.
func Open(dsn, schema string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = map[string]string{}
	}
	cfg.RuntimeParams["search_path"] = SearchPath(schema)

	return stdlib.OpenDB(*cfg), nil
}

// SearchPath returns schema quoted for the search_path runtime parameter. The
// quoting matches the one used for CREATE SCHEMA and qualified table names, so a
// mixed-case schema is not folded to lower case.
func SearchPath(schema string) string {
	return pgx.Identifier{schema}.Sanitize()
}

// Migrate brings the schema behind dsn up to date.
func Migrate(ctx context.Context, dsn, schema string) error {
	db, err := Open(dsn, schema)
	if err != nil {
		return err
	}
	defer db.Close()

	return Up(ctx, db, schema)
}

// Up creates schema when missing and applies all pending migrations to it.
func Up(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := gooseUpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
