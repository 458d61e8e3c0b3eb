package providers

import "context"

// TeamMessage is a notification for the operations team
type TeamMessage struct {
	Subject string
	Body    string
	Project string
	Sender  string
}

// ChannelResult is the outcome of one notification channel
type ChannelResult struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Notifier delivers team messages
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg TeamMessage) error
}

// EmailSender sends transactional email
type EmailSender interface {
	SendWelcome(ctx context.Context, to, fullName, tempPassword string) error
}

// FunctionInvoker calls a named serverless function with a JSON payload
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, payload interface{}, out interface{}) error
}
