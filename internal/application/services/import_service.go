package services

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// ImportService handles CSV uploads and their reversal
type ImportService struct {
	repo    repositories.ImportRepository
	events  providers.EventBus
	metrics *observability.Metrics
}

// NewImportService creates a new import service
func NewImportService(repo repositories.ImportRepository, events providers.EventBus, metrics *observability.Metrics) *ImportService {
	return &ImportService{repo: repo, events: events, metrics: metrics}
}

// Import parses the upload and writes every valid row with its history entry
// in one transaction
func (s *ImportService) Import(ctx context.Context, principal *entities.Principal, importType entities.ImportType, project, fileName string, r io.Reader) (*entities.ImportResult, error) {
	if project == "" {
		return nil, apperrors.NewValidationError("project is required")
	}
	if err := requireAccess(principal, project); err != nil {
		return nil, err
	}

	parsed, err := ParseImportCSV(importType, r)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	result := &entities.ImportResult{
		Skipped: len(parsed.Errors),
		Errors:  parsed.Errors,
	}
	if result.Errors == nil {
		result.Errors = []entities.ImportRowError{}
	}
	if len(parsed.Records) == 0 {
		return nil, apperrors.NewValidationError("no valid rows to import")
	}

	createdBy := principal.Email
	imp := &entities.CSVImport{
		ImportType:  importType,
		ProjectName: project,
		FileName:    fileName,
		CreatedBy:   &createdBy,
	}
	if err := s.repo.Import(ctx, imp, parsed.Records); err != nil {
		return nil, err
	}
	result.ImportID = imp.ID
	result.Imported = len(imp.ImportedRecordIDs)

	if s.metrics != nil {
		observability.RecordOutcome(ctx, s.metrics.ImportRows, string(importType), int64(result.Imported))
	}
	log.Info().
		Str("import_id", imp.ID).
		Str("project", project).
		Str("type", string(importType)).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("csv import committed")

	s.announce(ctx, importType, entities.NewChangeEvent(project, entities.ChangeEventImported, imp.ImportedRecordIDs...))
	return result, nil
}

// FindLast returns the newest import that can still be undone
func (s *ImportService) FindLast(ctx context.Context, principal *entities.Principal, importType entities.ImportType, project string) (*entities.CSVImport, error) {
	if err := requireAccess(principal, project); err != nil {
		return nil, err
	}
	return s.repo.FindLast(ctx, importType, project)
}

// Undo reverses an import exactly once. Repeated calls report AlreadyUndone.
func (s *ImportService) Undo(ctx context.Context, principal *entities.Principal, importID string) (*entities.UndoResult, error) {
	imp, err := s.repo.GetByID(ctx, importID)
	if err != nil {
		return nil, err
	}
	if err := requireAccess(principal, imp.ProjectName); err != nil {
		return nil, err
	}

	result, err := s.repo.Undo(ctx, importID)
	if err != nil {
		return nil, err
	}

	outcome := "undone"
	if result.AlreadyUndone {
		outcome = "already_undone"
	}
	if s.metrics != nil {
		observability.RecordOutcome(ctx, s.metrics.UndoCount, outcome, 1)
	}
	log.Info().
		Str("import_id", importID).
		Str("project", imp.ProjectName).
		Int64("deleted", result.Deleted).
		Str("outcome", outcome).
		Msg("csv import undo")

	if result.Undone {
		s.announce(ctx, imp.ImportType, entities.NewChangeEvent(imp.ProjectName, entities.ChangeEventDeleted, imp.ImportedRecordIDs...))
	}
	return result, nil
}

func (s *ImportService) announce(ctx context.Context, importType entities.ImportType, event *entities.ChangeEvent) {
	publish(ctx, s.events, providers.EventChannelImports, event)
	if importType == entities.ImportTypeAppointments {
		publish(ctx, s.events, providers.EventChannelAppointmentUpdates, event)
	}
}
