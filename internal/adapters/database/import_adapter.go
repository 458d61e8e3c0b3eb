package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const importHistoryTable = "csv_import_history"

var importColumns = []interface{}{
	"id", "import_type", "project_name", "file_name", "imported_record_ids",
	"is_undone", "undone_at", "created_by", "created_at",
}

// ImportAdapter implements the ImportRepository interface
type ImportAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewImportAdapter creates a new import adapter
func NewImportAdapter(client *postgres.Client) repositories.ImportRepository {
	return &ImportAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Import writes the rows and their history entry together. A failure on any
// row leaves neither behind.
func (a *ImportAdapter) Import(ctx context.Context, imp *entities.CSVImport, records []repositories.ImportRecord) error {
	if len(records) == 0 {
		return apperrors.NewValidationError("import has no rows")
	}

	rows := normalizeRecords(records, imp.ProjectName)
	insertSQL, insertArgs, err := a.db.Insert(imp.ImportType.Table()).
		Rows(rows...).
		Returning("id").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build import insert", err)
	}

	err = a.client.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.QueryContext(ctx, insertSQL, insertArgs...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", imp.ImportType.Table(), err)
		}
		ids := make([]string, 0, len(rows))
		for result.Next() {
			var id string
			if err := result.Scan(&id); err != nil {
				result.Close()
				return err
			}
			ids = append(ids, id)
		}
		result.Close()
		if err := result.Err(); err != nil {
			return err
		}

		historySQL, historyArgs, err := a.db.Insert(importHistoryTable).
			Rows(goqu.Record{
				"import_type":         string(imp.ImportType),
				"project_name":        imp.ProjectName,
				"file_name":           imp.FileName,
				"imported_record_ids": goqu.L("?::uuid[]", pq.Array(ids)),
				"created_by":          toNullString(imp.CreatedBy),
			}).
			Returning("id", "created_at").
			ToSQL()
		if err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, historySQL, historyArgs...).Scan(&imp.ID, &imp.CreatedAt); err != nil {
			return fmt.Errorf("insert import history: %w", err)
		}
		imp.ImportedRecordIDs = ids
		return nil
	})
	if err != nil {
		return apperrors.NewInternalError("failed to import rows", err)
	}
	return nil
}

// normalizeRecords gives every row the same column set, which a multi-row
// insert requires, and pins project_name. A column a row lacks takes the
// column default so NOT NULL columns with defaults still insert.
func normalizeRecords(records []repositories.ImportRecord, project string) []interface{} {
	keys := map[string]struct{}{}
	for _, r := range records {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	delete(keys, "id")
	cols := make([]string, 0, len(keys))
	for k := range keys {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	rows := make([]interface{}, 0, len(records))
	for _, r := range records {
		row := goqu.Record{"project_name": project}
		for _, c := range cols {
			if c == "project_name" {
				continue
			}
			if v, ok := r[c]; ok {
				row[c] = v
			} else {
				row[c] = goqu.Default()
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// FindLast returns the newest import still eligible for undo
func (a *ImportAdapter) FindLast(ctx context.Context, importType entities.ImportType, project string) (*entities.CSVImport, error) {
	query, args, err := a.db.Select(importColumns...).
		From(importHistoryTable).
		Where(goqu.Ex{
			"import_type":  string(importType),
			"project_name": project,
			"is_undone":    false,
		}).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	imp, err := scanImport(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no %s import to undo for %s", importType, project))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load import", err)
	}
	return imp, nil
}

// GetByID retrieves an import history entry
func (a *ImportAdapter) GetByID(ctx context.Context, id string) (*entities.CSVImport, error) {
	query, args, err := a.db.Select(importColumns...).
		From(importHistoryTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	imp, err := scanImport(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("import with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load import", err)
	}
	return imp, nil
}

// Undo locks the history row, deletes only the recorded ids inside the
// import's project and marks the import undone. A second call finds the
// flag already set and deletes nothing.
func (a *ImportAdapter) Undo(ctx context.Context, id string) (*entities.UndoResult, error) {
	lockSQL, lockArgs, err := a.db.Select(importColumns...).
		From(importHistoryTable).
		Where(goqu.Ex{"id": id}).
		ForUpdate(goqu.Wait).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	result := &entities.UndoResult{ImportID: id}
	err = a.client.WithTx(ctx, func(tx *sql.Tx) error {
		imp, err := scanImport(tx.QueryRowContext(ctx, lockSQL, lockArgs...))
		if err != nil {
			return err
		}
		if imp.IsUndone {
			result.AlreadyUndone = true
			return nil
		}

		if len(imp.ImportedRecordIDs) > 0 {
			deleteSQL, deleteArgs, err := a.db.Delete(imp.ImportType.Table()).
				Where(
					goqu.Ex{"id": imp.ImportedRecordIDs},
					goqu.Ex{"project_name": imp.ProjectName},
				).
				ToSQL()
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...)
			if err != nil {
				return fmt.Errorf("delete imported rows: %w", err)
			}
			if result.Deleted, err = res.RowsAffected(); err != nil {
				return err
			}
		}

		markSQL, markArgs, err := a.db.Update(importHistoryTable).
			Set(goqu.Record{"is_undone": true, "undone_at": goqu.L("now()")}).
			Where(goqu.Ex{"id": id}).
			ToSQL()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, markSQL, markArgs...); err != nil {
			return fmt.Errorf("mark import undone: %w", err)
		}
		result.Undone = true
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("import with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to undo import", err)
	}
	return result, nil
}

func scanImport(row rowScanner) (*entities.CSVImport, error) {
	imp := &entities.CSVImport{}
	var (
		importType string
		undoneAt   sql.NullTime
		createdBy  sql.NullString
		ids        []string
	)
	err := row.Scan(
		&imp.ID, &importType, &imp.ProjectName, &imp.FileName, pq.Array(&ids),
		&imp.IsUndone, &undoneAt, &createdBy, &imp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	imp.ImportType = entities.ImportType(importType)
	imp.ImportedRecordIDs = ids
	imp.UndoneAt = nullTime(undoneAt)
	imp.CreatedBy = nullString(createdBy)
	return imp, nil
}
