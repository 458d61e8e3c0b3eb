package entities

import (
	"fmt"
	"time"
)

// ImportType names the table a CSV import wrote into
type ImportType string

const (
	ImportTypeAppointments ImportType = "appointments"
	ImportTypeLeads        ImportType = "leads"
)

// ParseImportType validates s
func ParseImportType(s string) (ImportType, error) {
	switch ImportType(s) {
	case ImportTypeAppointments, ImportTypeLeads:
		return ImportType(s), nil
	}
	return "", fmt.Errorf("unknown import type %q", s)
}

// Table returns the table rows of this import type live in
func (t ImportType) Table() string {
	if t == ImportTypeLeads {
		return "new_leads"
	}
	return "all_appointments"
}

// CSVImport is a csv_import_history row. ImportedRecordIDs is exactly the set
// an undo may delete.
type CSVImport struct {
	ID                string     `json:"id" db:"id"`
	ImportType        ImportType `json:"import_type" db:"import_type"`
	ProjectName       string     `json:"project_name" db:"project_name"`
	FileName          string     `json:"file_name" db:"file_name"`
	ImportedRecordIDs []string   `json:"imported_record_ids" db:"imported_record_ids"`
	IsUndone          bool       `json:"is_undone" db:"is_undone"`
	UndoneAt          *time.Time `json:"undone_at,omitempty" db:"undone_at"`
	CreatedBy         *string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// ImportRowError reports a skipped CSV line
type ImportRowError struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// ImportResult summarises a finished import
type ImportResult struct {
	ImportID string           `json:"import_id"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// UndoResult summarises an undo call
type UndoResult struct {
	ImportID      string `json:"import_id"`
	Undone        bool   `json:"undone"`
	AlreadyUndone bool   `json:"already_undone"`
	Deleted       int64  `json:"deleted"`
}
