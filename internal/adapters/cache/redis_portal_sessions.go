package cache

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const portalSessionPrefix = "portal:session:"

type sessionStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisPortalSessions stores portal sessions keyed by the SHA-256 of their token
type RedisPortalSessions struct {
	rdb sessionStore
	now func() time.Time
}

// NewRedisPortalSessions creates a portal session store backed by rdb
func NewRedisPortalSessions(rdb sessionStore) providers.PortalSessionStore {
	return &RedisPortalSessions{rdb: rdb, now: time.Now}
}

type storedSession struct {
	ProjectName string    `json:"project_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return portalSessionPrefix + hex.EncodeToString(sum[:])
}

// Create issues a random 32-byte token for project
func (s *RedisPortalSessions) Create(ctx context.Context, project string, ttl time.Duration) (*entities.PortalSession, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperrors.NewInternalError("failed to generate session token", err)
	}
	session := &entities.PortalSession{
		Token:       hex.EncodeToString(raw),
		ProjectName: project,
		ExpiresAt:   s.now().Add(ttl).UTC(),
	}

	data, err := json.Marshal(storedSession{ProjectName: project, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode session", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.Token), data, ttl).Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to store session", err)
	}
	return session, nil
}

// Get resolves a token. Unknown or expired tokens are unauthorized.
func (s *RedisPortalSessions) Get(ctx context.Context, token string) (*entities.PortalSession, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("portal session required")
	}
	data, err := s.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewUnauthorizedError("portal session expired or invalid")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load session", err)
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, apperrors.NewInternalError("failed to decode session", err)
	}
	return &entities.PortalSession{Token: token, ProjectName: stored.ProjectName, ExpiresAt: stored.ExpiresAt}, nil
}

// Delete ends a session
func (s *RedisPortalSessions) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	return nil
}
