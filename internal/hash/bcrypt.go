// Package hash implements password hashing with bcrypt.
package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/authkeeper/internal/model"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

var _ model.PasswordHasher = (*Bcrypt)(nil)

// Bcrypt implements model.PasswordHasher.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a hasher with the given cost. Out-of-range costs fall back to
// DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the salted bcrypt hash of password.
func (b *Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", model.ErrValidation)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password is longer than 72 bytes", model.ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Compare checks password against hash.
func (b *Bcrypt) Compare(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return model.ErrPasswordMismatch
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}
