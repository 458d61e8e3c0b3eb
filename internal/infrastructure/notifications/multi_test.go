package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

type stubNotifier struct {
	name string
	err  error
	got  []providers.TeamMessage
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Notify(_ context.Context, msg providers.TeamMessage) error {
	s.got = append(s.got, msg)
	return s.err
}

func TestMultiNotifier_SkipsNil(t *testing.T) {
	var slack *SlackNotifier
	m := NewMultiNotifier(slack, nil, &stubNotifier{name: "discord"})
	assert.Equal(t, []string{"discord"}, m.Channels())
}

func TestMultiNotifier_PartialFailure(t *testing.T) {
	ok := &stubNotifier{name: "slack"}
	bad := &stubNotifier{name: "discord", err: errors.New("webhook gone")}
	m := NewMultiNotifier(ok, bad)

	results := m.Broadcast(context.Background(), providers.TeamMessage{Subject: "hi"})

	assert.Equal(t, []providers.ChannelResult{
		{Channel: "slack", Success: true},
		{Channel: "discord", Success: false, Error: "webhook gone"},
	}, results)
	assert.Len(t, ok.got, 1)
	assert.Len(t, bad.got, 1)
}

func TestMultiNotifier_NoChannels(t *testing.T) {
	assert.Empty(t, NewMultiNotifier().Broadcast(context.Background(), providers.TeamMessage{}))
}
