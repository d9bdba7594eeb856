// Package memory keeps accounts and refresh tokens in process memory. Every
// exported operation holds a single lock, so each call is atomic the same way a
// single SQL statement is. It is meant for local runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

type DB struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*model.User
	refreshTokens map[string]model.RefreshToken
}

func NewDB() *DB {
	return &DB{
		users:         make(map[uuid.UUID]*model.User),
		refreshTokens: make(map[string]model.RefreshToken),
	}
}

func (db *DB) Ping(context.Context) error {
	return nil
}

func (db *DB) Close() error {
	return nil
}

func cloneUser(u *model.User) model.User {
	out := *u
	if u.Email != nil {
		email := *u.Email
		out.Email = &email
	}
	out.Roles = append([]string{}, u.Roles...)
	return out
}
