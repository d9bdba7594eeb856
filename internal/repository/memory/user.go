package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

var (
	_ model.UserStore    = (*UserRepository)(nil)
	_ model.RoleAssigner = (*UserRepository)(nil)
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return model.User{}, model.ErrNotFound
}

func (r *UserRepository) GetByLogin(_ context.Context, login string) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var byEmail *model.User
	for _, u := range r.db.users {
		if u.Username == login {
			return cloneUser(u), nil
		}
		if u.Email != nil && *u.Email == login {
			byEmail = u
		}
	}
	if byEmail == nil {
		return model.User{}, model.ErrNotFound
	}
	return cloneUser(byEmail), nil
}

func (r *UserRepository) Create(_ context.Context, user model.NewUser) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.Username == user.Username || u.SecretToken == user.SecretToken {
			return model.User{}, model.ErrConflict
		}
		if user.Email != nil && u.Email != nil && *u.Email == *user.Email {
			return model.User{}, model.ErrConflict
		}
	}

	now := time.Now()
	saved := &model.User{
		ID:           uuid.New(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Active:       user.Active,
		DefaultRole:  user.DefaultRole,
		SecretToken:  user.SecretToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.db.users[saved.ID] = saved

	return cloneUser(saved), nil
}

func (r *UserRepository) Activate(_ context.Context, token, newToken string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u := r.bySecretToken(token)
	if u == nil || u.Active {
		return 0, nil
	}
	u.Active = true
	u.SecretToken = newToken
	u.UpdatedAt = time.Now()
	return 1, nil
}

func (r *UserRepository) ResetPassword(_ context.Context, token, passwordHash, newToken string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u := r.bySecretToken(token)
	if u == nil || !u.Active {
		return 0, nil
	}
	u.PasswordHash = passwordHash
	u.SecretToken = newToken
	u.UpdatedAt = time.Now()
	return 1, nil
}

// AssignRoles implements model.RoleAssigner. Already granted roles are ignored.
func (r *UserRepository) AssignRoles(_ context.Context, userID uuid.UUID, roles ...string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return model.ErrNotFound
	}
	for _, role := range roles {
		if !slices.Contains(u.Roles, role) {
			u.Roles = append(u.Roles, role)
		}
	}
	slices.Sort(u.Roles)
	return nil
}

func (r *UserRepository) bySecretToken(token string) *model.User {
	for _, u := range r.db.users {
		if u.SecretToken == token {
			return u
		}
	}
	return nil
}
