package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/pkg/config"
)

const (
	defaultBaseURL = "https://services.leadconnectorhq.com"
	apiVersion     = "2021-07-28"
)

// Client is the GoHighLevel API client. NewClient returns nil when no API key is set.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a GHL client, or nil if unconfigured
func NewClient(cfg config.GHLConfig) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

var _ providers.AppointmentProvider = (*Client)(nil)

// do performs an HTTP request to the GHL API
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ghl: marshal: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ghl: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ghl: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("ghl: read body: %w", err)
	}

	if resp.StatusCode >= 400 {
		bodyStr := string(respBody)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return nil, fmt.Errorf("ghl: HTTP %d: %s", resp.StatusCode, bodyStr)
	}
	return respBody, nil
}

type calendarsResponse struct {
	Calendars []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		IsActive    bool   `json:"isActive"`
	} `json:"calendars"`
}

// GetCalendars lists the calendars of a location
func (c *Client) GetCalendars(ctx context.Context, locationID string) ([]providers.Calendar, error) {
	body, err := c.do(ctx, http.MethodGet, "/calendars/?locationId="+url.QueryEscape(locationID), nil)
	if err != nil {
		return nil, err
	}

	var resp calendarsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ghl: unmarshal calendars: %w", err)
	}
	out := make([]providers.Calendar, 0, len(resp.Calendars))
	for _, cal := range resp.Calendars {
		out = append(out, providers.Calendar{
			ID:          cal.ID,
			Name:        cal.Name,
			Description: cal.Description,
			IsActive:    cal.IsActive,
		})
	}
	return out, nil
}

// AppointmentStatus maps a free-text dashboard status onto the GHL enum.
// ok is false for statuses GHL has no equivalent for.
func AppointmentStatus(status string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case strings.Contains(s, "cancelled"):
		return "cancelled", true
	case strings.Contains(s, "no show"), strings.Contains(s, "no-show"), s == "noshow":
		return "noshow", true
	case s == "confirmed":
		return "confirmed", true
	case s == "showed", s == "completed":
		return "showed", true
	case s == "invalid":
		return "invalid", true
	}
	return "", false
}

// UpdateAppointmentStatus mirrors a dashboard status onto a GHL appointment
func (c *Client) UpdateAppointmentStatus(ctx context.Context, appointmentID, status string) error {
	mapped, ok := AppointmentStatus(status)
	if !ok {
		return fmt.Errorf("ghl: status %q has no GHL equivalent", status)
	}
	_, err := c.do(ctx, http.MethodPut, "/calendars/events/appointments/"+url.PathEscape(appointmentID),
		map[string]string{"appointmentStatus": mapped})
	if err != nil {
		return err
	}
	log.Info().Str("ghl_appointment_id", appointmentID).Str("status", mapped).Msg("GHL appointment status updated")
	return nil
}

// SetContactDND toggles do-not-disturb on a contact
func (c *Client) SetContactDND(ctx context.Context, contactID string, dnd bool) error {
	_, err := c.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(contactID), map[string]bool{"dnd": dnd})
	return err
}

type locationResponse struct {
	Location struct {
		Timezone string `json:"timezone"`
	} `json:"location"`
}

// GetLocationTimezone returns the IANA timezone of a location
func (c *Client) GetLocationTimezone(ctx context.Context, locationID string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/locations/"+url.PathEscape(locationID), nil)
	if err != nil {
		return "", err
	}
	var resp locationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ghl: unmarshal location: %w", err)
	}
	if resp.Location.Timezone == "" {
		return "", fmt.Errorf("ghl: location %s has no timezone", locationID)
	}
	if _, err := time.LoadLocation(resp.Location.Timezone); err != nil {
		return "", fmt.Errorf("ghl: location %s reports unknown timezone %q", locationID, resp.Location.Timezone)
	}
	return resp.Location.Timezone, nil
}
