package cron

import (
	"context"

	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// Purger drops credentials whose lifetime has passed.
type Purger interface {
	PurgeExpired(ctx context.Context) (resetTokens, revokedSessions int)
}

// ExpiryJob removes expired password-reset tokens and revoked token ids.
type ExpiryJob struct {
	purger Purger
	logg   *logger.Logger
}

func NewExpiryJob(purger Purger, logg *logger.Logger) *ExpiryJob {
	if logg == nil {
		logg = logger.Nop()
	}
	return &ExpiryJob{purger: purger, logg: logg}
}

func (j *ExpiryJob) Name() string { return "credential-expiry" }

func (j *ExpiryJob) Run(ctx context.Context) error {
	tokens, sessions := j.purger.PurgeExpired(ctx)
	if tokens+sessions == 0 {
		return nil
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"reset_tokens":     tokens,
		"revoked_sessions": sessions,
	})
	j.logg.Info(ctx, "expired credentials purged")
	return nil
}
