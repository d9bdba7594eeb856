package context

import (
	"context"

	"github.com/dtroode/authkeeper/internal/model"
)

type claimsKey struct{}

// Manager stores verified access claims in a request context.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// SetClaimsToContext returns a copy of ctx carrying claims.
func (m *Manager) SetClaimsToContext(ctx context.Context, claims model.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaimsFromContext returns the claims stored by SetClaimsToContext.
func (m *Manager) GetClaimsFromContext(ctx context.Context) (model.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(model.AccessClaims)
	return claims, ok
}
