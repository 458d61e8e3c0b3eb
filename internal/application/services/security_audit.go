package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// SecurityAudit writes security events on a best-effort basis
type SecurityAudit struct {
	repo repositories.SecurityEventRepository
}

// NewSecurityAudit creates a new audit logger
func NewSecurityAudit(repo repositories.SecurityEventRepository) *SecurityAudit {
	return &SecurityAudit{repo: repo}
}

// Record stores an event. Failures are logged and swallowed.
func (a *SecurityAudit) Record(ctx context.Context, eventType entities.SecurityEventType, severity entities.Severity, subject, ip string, details map[string]interface{}) {
	if a == nil || a.repo == nil {
		return
	}
	event := &entities.SecurityEvent{
		EventType: eventType,
		Severity:  severity,
		Subject:   subject,
		IPAddress: ip,
		Details:   details,
	}
	if err := a.repo.Log(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_type", string(eventType)).
			Str("subject", subject).
			Msg("failed to record security event")
	}
}

// RateGuard applies the fail-closed rate limit policy
type RateGuard struct {
	limiter providers.RateLimiter
	audit   *SecurityAudit
	metrics *observability.Metrics
}

// NewRateGuard creates a rate guard
func NewRateGuard(limiter providers.RateLimiter, audit *SecurityAudit, metrics *observability.Metrics) *RateGuard {
	return &RateGuard{limiter: limiter, audit: audit, metrics: metrics}
}

// Check counts one attempt against key. The returned decision is always
// populated so callers can emit headers. A backend failure denies.
func (g *RateGuard) Check(ctx context.Context, key string, limit int, window time.Duration, subject, ip string) (providers.RateDecision, error) {
	decision, err := g.limiter.Allow(ctx, key, limit, window)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("rate limiter unavailable, denying request")
		g.audit.Record(ctx, entities.SecurityEventRateLimitBackendError, entities.SeverityCritical, subject, ip,
			map[string]interface{}{"key": key, "error": err.Error()})
		g.count(ctx, "backend_error")
		if decision.RetryAfter <= 0 {
			decision.RetryAfter = window
		}
		decision.Allowed = false
		decision.Limit = limit
		decision.Remaining = 0
		return decision, apperrors.NewRateLimitedError("too many attempts, try again later")
	}
	if !decision.Allowed {
		g.audit.Record(ctx, entities.SecurityEventRateLimited, entities.SeverityWarning, subject, ip,
			map[string]interface{}{"key": key, "limit": limit})
		g.count(ctx, "limited")
		return decision, apperrors.NewRateLimitedError("too many attempts, try again later")
	}
	return decision, nil
}

func (g *RateGuard) count(ctx context.Context, outcome string) {
	if g.metrics != nil {
		observability.RecordOutcome(ctx, g.metrics.RateLimitDenied, outcome, 1)
	}
}
