package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dtroode/authkeeper/database"
)

// DefaultSchema is used when no schema is configured.
const DefaultSchema = "public"

type Connection struct {
	*pgxpool.Pool
	schema string
}

// NewConnection creates a new Connection instance.
// It applies pending migrations to schema and opens a connection pool whose
// search_path points at that schema.
//
// Parameters:
//   - ctx: Context bounding migration and pool setup
//   - dsn: The PostgreSQL connection string
//   - schema: The schema holding the credential tables, public when empty
//
// Returns a pointer to the newly created Connection, or an error if the dsn does
// not parse, migrations fail, or the pool cannot be opened.
func NewConnection(ctx context.Context, dsn, schema string) (*Connection, error) {
	if schema == "" {
		schema = DefaultSchema
	}

	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	conf.ConnConfig.RuntimeParams["search_path"] = database.SearchPath(schema)

	if err := database.Migrate(ctx, dsn, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	return &Connection{
		Pool:   pool,
		schema: schema,
	}, nil
}

func (s *Connection) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	return nil
}

func (s *Connection) Ping(ctx context.Context) error {
	if s.Pool == nil {
		return fmt.Errorf("connection pool is nil")
	}
	return s.Pool.Ping(ctx)
}

// table returns the schema-qualified, quoted name of a table.
func (s *Connection) table(name string) string {
	schema := s.schema
	if schema == "" {
		schema = DefaultSchema
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
