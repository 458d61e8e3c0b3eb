package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	redisclient "github.com/zatekoja/intakedesk/internal/infrastructure/clients/redis"
)

// subscriberBuffer is how many change events a slow dashboard may lag
// behind before it starts missing them.
const subscriberBuffer = 100

// topic is one Redis channel and the local listeners fed from it.
type topic struct {
	name      string
	pubsub    *redis.PubSub
	listeners map[chan *entities.ChangeEvent]struct{}
}

// deliver hands the event to every listener without blocking and reports
// how many listeners were too far behind to take it. Callers hold the bus
// lock at least for reading.
func (t *topic) deliver(event *entities.ChangeEvent) (skipped int) {
	for listener := range t.listeners {
		select {
		case listener <- event:
		default:
			skipped++
		}
	}
	return skipped
}

// closeListeners closes and forgets every listener. Callers hold the bus
// lock for writing.
func (t *topic) closeListeners() {
	for listener := range t.listeners {
		close(listener)
	}
	t.listeners = map[chan *entities.ChangeEvent]struct{}{}
}

// RedisEventBus carries appointment change events between API replicas and
// the worker over Redis pub/sub. Each channel holds a single Redis
// subscription shared by all local listeners.
type RedisEventBus struct {
	client *redisclient.Client

	mu     sync.RWMutex
	topics map[string]*topic

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		topics: make(map[string]*topic),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends the event to every process subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event for %s: %w", event.EventType, event.ProjectName, err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("type", string(event.EventType)).
		Str("project", event.ProjectName).
		Int("appointments", len(event.AppointmentIDs)).
		Msg("change event published")
	return nil
}

// Subscribe returns a listener that receives events until ctx ends, at
// which point the listener is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, errors.New("event bus is closed")
	}

	listener := make(chan *entities.ChangeEvent, subscriberBuffer)

	b.mu.Lock()
	t, ok := b.topics[channel]
	if !ok {
		t = &topic{
			name:      channel,
			pubsub:    b.client.Client().Subscribe(b.ctx, channel),
			listeners: make(map[chan *entities.ChangeEvent]struct{}),
		}
		b.topics[channel] = t
		go b.pump(t)
	}
	t.listeners[listener] = struct{}{}
	listeners := len(t.listeners)
	b.mu.Unlock()

	log.Debug().Str("channel", channel).Int("listeners", listeners).Msg("listener attached")

	go func() {
		<-ctx.Done()
		b.detach(t, listener)
	}()

	return listener, nil
}

// pump forwards messages from the Redis subscription until it closes, then
// retires the topic.
func (b *RedisEventBus) pump(t *topic) {
	defer b.retire(t)

	for msg := range t.pubsub.Channel() {
		event, err := decodeEvent(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("channel", t.name).Msg("dropping undecodable change event")
			continue
		}

		b.mu.RLock()
		skipped := t.deliver(event)
		b.mu.RUnlock()

		if skipped > 0 {
			log.Warn().
				Str("channel", t.name).
				Str("event_id", event.ID).
				Str("project", event.ProjectName).
				Int("skipped", skipped).
				Msg("listeners behind, change event skipped")
		}
	}
}

// detach removes one listener. The last listener out closes the Redis
// subscription, which ends the pump.
func (b *RedisEventBus) detach(t *topic, listener chan *entities.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := t.listeners[listener]; !ok {
		return
	}
	delete(t.listeners, listener)
	close(listener)

	if len(t.listeners) == 0 && b.topics[t.name] == t {
		delete(b.topics, t.name)
		_ = t.pubsub.Close()
		log.Debug().Str("channel", t.name).Msg("last listener left, subscription closed")
	}
}

// retire closes whatever listeners remain on t and unregisters it. A newer
// topic registered under the same channel is left alone.
func (b *RedisEventBus) retire(t *topic) {
	b.mu.Lock()
	t.closeListeners()
	if b.topics[t.name] == t {
		delete(b.topics, t.name)
	}
	b.mu.Unlock()

	// Closing an already closed subscription is harmless here
	_ = t.pubsub.Close()
}

// Unsubscribe drops the channel's subscription and closes its listeners
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.RLock()
	t, ok := b.topics[channel]
	b.mu.RUnlock()
	if !ok {
		return nil
	}

	b.retire(t)
	log.Info().Str("channel", channel).Msg("unsubscribed")
	return nil
}

// Close stops every subscription. Listeners see their channels close.
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	topics := make([]*topic, 0, len(b.topics))
	for _, t := range b.topics {
		topics = append(topics, t)
		t.closeListeners()
	}
	b.topics = make(map[string]*topic)
	b.mu.Unlock()

	var errs []error
	for _, t := range topics {
		if err := t.pubsub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", t.name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %w", errors.Join(errs...))
	}

	log.Info().Int("channels", len(topics)).Msg("event bus closed")
	return nil
}

// decodeEvent parses a published payload. Events without an id or project
// cannot be routed to a dashboard and are rejected.
func decodeEvent(payload string) (*entities.ChangeEvent, error) {
	var event entities.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, err
	}
	if event.ID == "" {
		return nil, errors.New("event without id")
	}
	if event.ProjectName == "" {
		return nil, errors.New("event without project")
	}
	return &event, nil
}
