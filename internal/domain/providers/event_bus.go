package providers

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelAppointmentUpdates carries every appointment change
	EventChannelAppointmentUpdates = "appointments:updates"

	// EventChannelImports carries import and undo completions
	EventChannelImports = "imports:updates"
)
