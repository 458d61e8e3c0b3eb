package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/intakedesk/internal/api/middleware"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// AuthService defines the interface for dashboard sign-in
type AuthService interface {
	Login(ctx context.Context, email, password, ip string) (*services.LoginResult, error)
	ChangePassword(ctx context.Context, principal *entities.Principal, current, next, ip string) error
}

// RateChecker counts one attempt against a key
type RateChecker interface {
	Check(ctx context.Context, key string, limit int, window time.Duration, subject, ip string) (providers.RateDecision, error)
}

// RatePolicy is the limit applied to one credential endpoint
type RatePolicy struct {
	Limit  int
	Window time.Duration
}

// checkRate applies policy to key and always emits the rate limit headers
func checkRate(w http.ResponseWriter, r *http.Request, limiter RateChecker, policy RatePolicy, key, subject string) bool {
	ip := middleware.ClientIP(r)
	decision, err := limiter.Check(r.Context(), key, policy.Limit, policy.Window, subject, ip)
	middleware.SetRateLimitHeaders(w, decision)
	if err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// AuthHandler handles dashboard session requests
type AuthHandler struct {
	service AuthService
	limiter RateChecker
	policy  RatePolicy
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service AuthService, limiter RateChecker, policy RatePolicy) *AuthHandler {
	return &AuthHandler{service: service, limiter: limiter, policy: policy}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, r, apperrors.NewValidationError("email and password are required"))
		return
	}

	ip := middleware.ClientIP(r)
	if !checkRate(w, r, h.limiter, h.policy, "login:"+email+":"+ip, email) {
		return
	}

	result, err := h.service.Login(r.Context(), email, req.Password, ip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if !checkRate(w, r, h.limiter, h.policy, "change-password:"+p.UserID, p.Email) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), p, req.CurrentPassword, req.NewPassword, middleware.ClientIP(r)); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"changed": true})
}
