package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/api/middleware"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

var (
	adminPrincipal = &entities.Principal{UserID: "admin-1", Email: "admin@example.com", Role: entities.RoleAdmin}
	agentPrincipal = &entities.Principal{UserID: "agent-1", Email: "agent@example.com", Role: entities.RoleAgent, Projects: []string{"acme"}}
)

// newRequest builds a request with p already resolved by the session guard
func newRequest(method, target, body string, p *entities.Principal) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}
	return req
}

// serve routes req through a mux so path values are populated
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(dst))
}

type MockRateChecker struct {
	mock.Mock
}

func (m *MockRateChecker) Check(ctx context.Context, key string, limit int, window time.Duration, subject, ip string) (providers.RateDecision, error) {
	args := m.Called(ctx, key, limit, window, subject, ip)
	return args.Get(0).(providers.RateDecision), args.Error(1)
}
