package repositories

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// ImportRecord is one CSV row mapped to column values
type ImportRecord map[string]interface{}

// ImportRepository records CSV imports and reverses them
type ImportRepository interface {
	// Import inserts records and the history row in one transaction.
	// imp.ID and imp.ImportedRecordIDs are filled on success.
	Import(ctx context.Context, imp *entities.CSVImport, records []ImportRecord) error

	// FindLast returns the newest import of a type for a project that is not undone
	FindLast(ctx context.Context, importType entities.ImportType, project string) (*entities.CSVImport, error)

	GetByID(ctx context.Context, id string) (*entities.CSVImport, error)

	// Undo deletes exactly the recorded ids and flags the import as undone,
	// atomically. Calling it again is a no-op that reports AlreadyUndone.
	Undo(ctx context.Context, id string) (*entities.UndoResult, error)
}
