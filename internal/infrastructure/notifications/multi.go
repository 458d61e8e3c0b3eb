package notifications

import (
	"context"
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

// MultiNotifier fans a message out to every configured channel
type MultiNotifier struct {
	notifiers []providers.Notifier
}

// NewMultiNotifier skips nil notifiers, so unconfigured channels can be passed as-is
func NewMultiNotifier(notifiers ...providers.Notifier) *MultiNotifier {
	m := &MultiNotifier{}
	for _, n := range notifiers {
		if isNil(n) {
			continue
		}
		m.notifiers = append(m.notifiers, n)
	}
	return m
}

func isNil(n providers.Notifier) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// Channels returns the names of the configured channels
func (m *MultiNotifier) Channels() []string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Broadcast sends msg to every channel concurrently. One failing channel
// does not stop the others; each outcome is reported in channel order.
func (m *MultiNotifier) Broadcast(ctx context.Context, msg providers.TeamMessage) []providers.ChannelResult {
	results := make([]providers.ChannelResult, len(m.notifiers))
	var wg sync.WaitGroup
	for i, n := range m.notifiers {
		wg.Add(1)
		go func(i int, n providers.Notifier) {
			defer wg.Done()
			res := providers.ChannelResult{Channel: n.Name(), Success: true}
			if err := n.Notify(ctx, msg); err != nil {
				log.Warn().Err(err).Str("channel", n.Name()).Msg("team notification failed")
				res.Success = false
				res.Error = err.Error()
			}
			results[i] = res
		}(i, n)
	}
	wg.Wait()
	return results
}
