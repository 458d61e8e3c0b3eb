package services

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// FunctionService lets admins run maintenance functions by name
type FunctionService struct {
	invoker providers.FunctionInvoker
}

// NewFunctionService creates a new function service
func NewFunctionService(invoker providers.FunctionInvoker) *FunctionService {
	return &FunctionService{invoker: invoker}
}

// Invoke runs an allowlisted function and returns its raw JSON response
func (s *FunctionService) Invoke(ctx context.Context, principal *entities.Principal, name string, payload json.RawMessage) (json.RawMessage, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins may invoke functions")
	}
	if s.invoker == nil {
		return nil, apperrors.NewExternalError("function invoker not configured", nil)
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return nil, apperrors.NewValidationError("payload must be JSON")
	}

	var out json.RawMessage
	if err := s.invoker.Invoke(ctx, name, payload, &out); err != nil {
		return nil, err
	}
	log.Info().Str("function", name).Str("by", principal.Email).Msg("function invoked")
	return out, nil
}
