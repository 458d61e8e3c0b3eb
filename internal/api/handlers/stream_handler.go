package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const defaultHeartbeat = 30 * time.Second

// StreamHandler pushes appointment change events to open dashboards over
// Server-Sent Events so tables and tab counts refresh without polling.
type StreamHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	logger    zerolog.Logger

	mu      sync.Mutex
	clients map[string]int // user id -> open streams
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(eventBus providers.EventBus, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &StreamHandler{
		eventBus:  eventBus,
		heartbeat: heartbeat,
		logger:    observability.Component("stream"),
		clients:   make(map[string]int),
	}
}

// StreamAppointments handles GET /api/stream/appointments?project=
func (h *StreamHandler) StreamAppointments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, ok := p.ScopeProjects(r.URL.Query().Get("project"))
	if !ok {
		writeError(w, r, apperrors.NewForbiddenError("no access to project"))
		return
	}

	ctx := r.Context()
	events, err := h.eventBus.Subscribe(ctx, providers.EventChannelAppointmentUpdates)
	if err != nil {
		writeError(w, r, apperrors.NewInternalError("failed to subscribe to updates", err))
		return
	}

	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	h.register(p.UserID)
	defer h.unregister(p.UserID)

	logger := observability.LoggerFromContext(ctx)
	h.sendEvent(w, "connected", map[string]interface{}{
		"projects":  projects,
		"timestamp": time.Now().UTC(),
	})
	if err := rc.Flush(); err != nil {
		logger.Warn().Err(err).Msg("streaming not supported")
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			if err := rc.Flush(); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil || !visible(projects, event.ProjectName) {
				continue
			}
			h.sendEvent(w, string(event.EventType), event)
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// visible reports whether an event belongs to the scoped projects.
// An empty scope is the admin's unrestricted view.
func visible(projects []string, project string) bool {
	return len(projects) == 0 || slices.Contains(projects, project)
}

func (h *StreamHandler) register(userID string) {
	h.mu.Lock()
	h.clients[userID]++
	total := h.countLocked()
	h.mu.Unlock()
	h.logger.Debug().Str("user_id", userID).Int("streams", total).Msg("stream opened")
}

func (h *StreamHandler) unregister(userID string) {
	h.mu.Lock()
	if h.clients[userID] <= 1 {
		delete(h.clients, userID)
	} else {
		h.clients[userID]--
	}
	total := h.countLocked()
	h.mu.Unlock()
	h.logger.Debug().Str("user_id", userID).Int("streams", total).Msg("stream closed")
}

func (h *StreamHandler) countLocked() int {
	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}

// ClientCount returns the number of open streams
func (h *StreamHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.countLocked()
}

// Stats handles GET /api/admin/streams
func (h *StreamHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int{"connected_clients": h.ClientCount()})
}

func (h *StreamHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
}
