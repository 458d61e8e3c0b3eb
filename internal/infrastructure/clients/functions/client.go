package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/pkg/config"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
	"github.com/zatekoja/intakedesk/pkg/retry"
)

// Known lists every hosted function the backend may call
var Known = []string{
	"sync-intake-notes",
	"bulk-parse-all-intake-notes",
	"auto-parse-intake-notes",
	"format-intake-ai",
	"get-ghl-calendars",
	"update-ghl-appointment",
	"update-ghl-contact-dnd",
	"sync-ghl-location-timezone",
	"sync-sheets-data",
	"send-welcome-email",
	"project-auth",
	"notify-slack-support",
	"receive-team-message",
	"admin-dedupe-appointments",
	"fix-completed-appointments",
	"reparse-specific-appointments",
	"trigger-reparse",
	"sync-buffalo-appointment-statuses",
	"debug-password",
	"debug-user-deletion",
}

// IsKnown reports whether name is on the allowlist
func IsKnown(name string) bool {
	return slices.Contains(Known, name)
}

const maxResponseBytes = 10 << 20

// StatusError is a non-2xx answer from a function
type StatusError struct {
	Function string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("function %s returned HTTP %d: %s", e.Function, e.Status, e.Body)
}

// HTTPClient invokes functions with JSON POSTs
type HTTPClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	retryCfg   retry.Config
}

// NewClient returns nil when no base URL is configured
func NewClient(cfg config.FunctionsConfig) *HTTPClient {
	if cfg.BaseURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   retry.RequestConfig(),
	}
}

var _ providers.FunctionInvoker = (*HTTPClient)(nil)

// Invoke posts payload to the named function and decodes the reply into out.
// Transport errors and 5xx answers are retried; 4xx answers are not.
func (c *HTTPClient) Invoke(ctx context.Context, name string, payload interface{}, out interface{}) error {
	if c == nil {
		return apperrors.NewExternalError("functions not configured", errors.New("FUNCTIONS_BASE_URL is empty"))
	}
	if !IsKnown(name) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown function %q", name))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.NewInternalError("failed to encode function payload", err)
	}
	endpoint := c.baseURL + "/" + url.PathEscape(name)

	var respBody []byte
	err = retry.DoWithLog(ctx, c.retryCfg, "function "+name,
		func() error {
			var err error
			respBody, err = c.post(ctx, name, endpoint, body)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Str("function", name).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("function call failed")
		},
	)
	if err != nil {
		return apperrors.NewExternalError(fmt.Sprintf("function %s failed", name), err)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewExternalError(fmt.Sprintf("function %s returned invalid JSON", name), err)
	}
	return nil
}

func (c *HTTPClient) post(ctx context.Context, name, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		statusErr := &StatusError{Function: name, Status: resp.StatusCode, Body: snippet}
		if resp.StatusCode < 500 {
			return nil, retry.Permanent(statusErr)
		}
		return nil, statusErr
	}
	return respBody, nil
}
