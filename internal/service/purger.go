package service

import (
	"context"
	"time"

	"github.com/dtroode/authkeeper/internal/logger"
)

// ExpiredPurger deletes expired refresh tokens.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Purger periodically removes refresh tokens that can no longer be rotated.
// Expired tokens are rejected on lookup either way.
type Purger struct {
	tokens ExpiredPurger
	logger *logger.Logger
}

func NewPurger(tokens ExpiredPurger, logger *logger.Logger) *Purger {
	return &Purger{tokens: tokens, logger: logger}
}

// Run purges once per interval until ctx is cancelled.
func (p *Purger) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		p.logger.Info("Purger: disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Purger: stopped")
			return
		case <-ticker.C:
			p.purge(ctx)
		}
	}
}

func (p *Purger) purge(ctx context.Context) {
	purged, err := p.tokens.PurgeExpired(ctx)
	if err != nil {
		p.logger.Error("Purger: failed to purge expired refresh tokens",
			"error", err.Error())
		return
	}
	if purged > 0 {
		p.logger.Info("Purger: expired refresh tokens removed",
			"count", purged)
	}
}
