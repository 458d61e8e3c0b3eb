package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

// SlackNotifier posts team messages to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewSlackNotifier returns nil when no webhook is configured
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	if webhookURL == "" {
		return nil
	}
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name implements providers.Notifier
func (n *SlackNotifier) Name() string { return "slack" }

// Notify implements providers.Notifier
func (n *SlackNotifier) Notify(ctx context.Context, msg providers.TeamMessage) error {
	header := msg.Subject
	if msg.Project != "" {
		header = fmt.Sprintf("[%s] %s", msg.Project, msg.Subject)
	}
	body := msg.Body
	if msg.Sender != "" {
		body = fmt.Sprintf("%s\n_from %s_", msg.Body, msg.Sender)
	}

	payload := slackPayload{
		Text: header + "\n" + msg.Body,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: truncate(header, 150)}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: truncate(body, 3000)}},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("slack: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: HTTP %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
