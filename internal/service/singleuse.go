package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

// replaceFunc consumes a presented single-use credential and stores next in its
// place as one store write. It reports how many records it changed.
type replaceFunc func(ctx context.Context, next string) (int64, error)

// consumeAndReplace generates the successor of a single-use credential and hands it
// to replace. Zero affected records fails with model.ErrInvalidCredential whatever
// the reason.
func consumeAndReplace(ctx context.Context, replace replaceFunc) (string, error) {
	next, err := newSecret()
	if err != nil {
		return "", err
	}

	affected, err := replace(ctx, next)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrStore, err)
	}
	if affected == 0 {
		return "", model.ErrInvalidCredential
	}

	return next, nil
}

// newSecret returns a random uuid v4 string.
func newSecret() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return id.String(), nil
}

// isSecretShape reports whether s looks like a value produced by newSecret.
func isSecretShape(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.Version() == 4 && id.String() == s
}
