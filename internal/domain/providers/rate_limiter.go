package providers

import (
	"context"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// RateDecision is the result of a rate limit check
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts attempts per key in fixed windows
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateDecision, error)
}

// PortalSessionStore keeps project portal sessions
type PortalSessionStore interface {
	Create(ctx context.Context, project string, ttl time.Duration) (*entities.PortalSession, error)
	Get(ctx context.Context, token string) (*entities.PortalSession, error)
	Delete(ctx context.Context, token string) error
}
