package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// NoteAdapter stores appointment notes through sqlx struct scanning
type NoteAdapter struct {
	db *sqlx.DB
}

// NewNoteAdapter creates a new note adapter
func NewNoteAdapter(db *sqlx.DB) repositories.NoteRepository {
	return &NoteAdapter{db: db}
}

// ListByAppointment returns notes newest first
func (a *NoteAdapter) ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentNote, error) {
	notes := []*entities.AppointmentNote{}
	err := a.db.SelectContext(ctx, &notes, `
		SELECT id, appointment_id, note_text, created_by, created_at
		FROM appointment_notes
		WHERE appointment_id = $1
		ORDER BY created_at DESC`, appointmentID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list notes", err)
	}
	return notes, nil
}

// Create inserts a note and fills its id and timestamp
func (a *NoteAdapter) Create(ctx context.Context, note *entities.AppointmentNote) error {
	text := strings.TrimSpace(note.NoteText)
	if text == "" {
		return apperrors.NewValidationError("note text is required")
	}
	if len([]rune(text)) > entities.MaxNoteLength {
		return apperrors.NewValidationError(fmt.Sprintf("note exceeds %d characters", entities.MaxNoteLength))
	}
	note.NoteText = text

	err := a.db.QueryRowxContext(ctx, `
		INSERT INTO appointment_notes (appointment_id, note_text, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		note.AppointmentID, note.NoteText, note.CreatedBy,
	).Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return apperrors.NewInternalError("failed to create note", err)
	}
	return nil
}

// Delete removes a note belonging to the appointment
func (a *NoteAdapter) Delete(ctx context.Context, appointmentID, noteID string) error {
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM appointment_notes WHERE id = $1 AND appointment_id = $2`,
		noteID, appointmentID)
	if err != nil {
		return apperrors.NewInternalError("failed to delete note", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("note with id %s not found", noteID))
	}
	return nil
}

type noteCount struct {
	AppointmentID string `db:"appointment_id"`
	Count         int    `db:"count"`
}

// CountByAppointments counts notes for many appointments in one query.
// Appointments without notes are absent from the map.
func (a *NoteAdapter) CountByAppointments(ctx context.Context, appointmentIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(appointmentIDs))
	if len(appointmentIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT appointment_id, COUNT(*) AS count
		FROM appointment_notes
		WHERE appointment_id IN (?)
		GROUP BY appointment_id`, appointmentIDs)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build note count query", err)
	}

	var rows []noteCount
	if err := a.db.SelectContext(ctx, &rows, a.db.Rebind(query), args...); err != nil {
		return nil, apperrors.NewInternalError("failed to count notes", err)
	}
	for _, r := range rows {
		out[r.AppointmentID] = r.Count
	}
	return out, nil
}
