package services

import (
	"context"
	"strings"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const maxMessageLength = 4000

// Broadcaster fans a team message out to every configured channel
type Broadcaster interface {
	Channels() []string
	Broadcast(ctx context.Context, msg providers.TeamMessage) []providers.ChannelResult
}

// NotificationService handles support requests and project team messages
type NotificationService struct {
	messages    repositories.ProjectMessageRepository
	broadcaster Broadcaster
}

// NewNotificationService creates a new notification service
func NewNotificationService(messages repositories.ProjectMessageRepository, broadcaster Broadcaster) *NotificationService {
	return &NotificationService{messages: messages, broadcaster: broadcaster}
}

// SupportRequest is a help request from a dashboard user
type SupportRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	Project string `json:"project,omitempty"`
}

// Support sends a support request to every channel. One channel failing
// does not stop the others; each outcome is returned.
func (s *NotificationService) Support(ctx context.Context, principal *entities.Principal, req SupportRequest) ([]providers.ChannelResult, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	subject := strings.TrimSpace(req.Subject)
	body := strings.TrimSpace(req.Message)
	if subject == "" || body == "" {
		return nil, apperrors.NewValidationError("subject and message are required")
	}
	if len(body) > maxMessageLength {
		return nil, apperrors.NewValidationError("message is too long")
	}
	if req.Project != "" {
		if err := requireAccess(principal, req.Project); err != nil {
			return nil, err
		}
	}
	if len(s.broadcaster.Channels()) == 0 {
		return nil, apperrors.NewExternalError("no notification channels configured", nil)
	}

	return s.broadcaster.Broadcast(ctx, providers.TeamMessage{
		Subject: "Support: " + subject,
		Body:    body,
		Project: req.Project,
		Sender:  principal.Email,
	}), nil
}

// PostMessage stores a team message for a project, then notifies the team.
// The stored message survives notification failures.
func (s *NotificationService) PostMessage(ctx context.Context, principal *entities.Principal, project, text string) (*entities.ProjectMessage, []providers.ChannelResult, error) {
	if err := requireAccess(principal, project); err != nil {
		return nil, nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, apperrors.NewValidationError("message is required")
	}
	if len(text) > maxMessageLength {
		return nil, nil, apperrors.NewValidationError("message is too long")
	}

	msg := &entities.ProjectMessage{ProjectName: project, Sender: principal.Email, Message: text}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, nil, err
	}

	results := s.broadcaster.Broadcast(ctx, providers.TeamMessage{
		Subject: "New team message",
		Body:    text,
		Project: project,
		Sender:  principal.Email,
	})
	return msg, results, nil
}

// ListMessages returns recent team messages of a project
func (s *NotificationService) ListMessages(ctx context.Context, principal *entities.Principal, project string, limit int) ([]*entities.ProjectMessage, error) {
	if err := requireAccess(principal, project); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return s.messages.ListByProject(ctx, project, limit)
}
