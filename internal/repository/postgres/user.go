package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/authkeeper/internal/model"
)

var (
	_ model.UserStore    = (*UserRepository)(nil)
	_ model.RoleAssigner = (*UserRepository)(nil)
)

type UserRepository struct {
	db        *Connection
	users     string
	userRoles string
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db:        db,
		users:     db.table("users"),
		userRoles: db.table("user_roles"),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// userSelect selects a user row with its aggregated role slugs. from must alias the
// users table as u.
func userSelect(from, userRoles string) string {
	return `SELECT u.id, u.username, u.email, u.password_hash, u.active, u.default_role, u.secret_token,
			       u.created_at, u.updated_at,
			       COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
			  FROM ` + from + `
			  LEFT JOIN ` + userRoles + ` ur ON ur.user_id = u.id`
}

func scanUser(row rowScanner) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Active, &user.DefaultRole,
		&user.SecretToken, &user.CreatedAt, &user.UpdatedAt, &user.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (model.User, error) {
	query := userSelect(r.users+" u", r.userRoles) + `
			 WHERE u.username = $1
			 GROUP BY u.id`

	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (model.User, error) {
	query := userSelect(r.users+" u", r.userRoles) + `
			 WHERE u.username = $1 OR u.email = $1
			 GROUP BY u.id
			 ORDER BY (u.username = $1) DESC
			 LIMIT 1`

	user, err := scanUser(r.db.QueryRow(ctx, query, login))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to get user by login: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.NewUser) (model.User, error) {
	query := `INSERT INTO ` + r.users + ` (id, username, email, password_hash, active, default_role, secret_token)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id, username, email, password_hash, active, default_role, secret_token, created_at, updated_at`

	var saved model.User
	err := r.db.QueryRow(ctx, query,
		uuid.New(), user.Username, user.Email, user.PasswordHash, user.Active, user.DefaultRole, user.SecretToken,
	).Scan(
		&saved.ID, &saved.Username, &saved.Email, &saved.PasswordHash, &saved.Active, &saved.DefaultRole,
		&saved.SecretToken, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, model.ErrConflict
		}
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

func (r *UserRepository) Activate(ctx context.Context, token, newToken string) (int64, error) {
	query := `UPDATE ` + r.users + `
			     SET active = TRUE, secret_token = $2, updated_at = NOW()
			   WHERE secret_token = $1 AND active = FALSE`

	tag, err := r.db.Exec(ctx, query, token, newToken)
	if err != nil {
		return 0, fmt.Errorf("failed to activate user: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepository) ResetPassword(ctx context.Context, token, passwordHash, newToken string) (int64, error) {
	query := `UPDATE ` + r.users + `
			     SET password_hash = $2, secret_token = $3, updated_at = NOW()
			   WHERE secret_token = $1 AND active = TRUE`

	tag, err := r.db.Exec(ctx, query, token, passwordHash, newToken)
	if err != nil {
		return 0, fmt.Errorf("failed to reset user password: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AssignRoles implements model.RoleAssigner. Already granted roles are ignored.
func (r *UserRepository) AssignRoles(ctx context.Context, userID uuid.UUID, roles ...string) error {
	query := `INSERT INTO ` + r.userRoles + ` (user_id, role)
			  SELECT $1, unnest($2::text[])
			  ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, query, userID, roles); err != nil {
		return fmt.Errorf("failed to assign roles: %w", err)
	}
	return nil
}
