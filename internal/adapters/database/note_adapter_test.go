package database

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestNoteAdapter_CountByAppointments(t *testing.T) {
	db, mock := setupMockDB(t)
	adapter := NewNoteAdapter(db)

	mock.ExpectQuery(`SELECT appointment_id, COUNT\(\*\) AS count\s+FROM appointment_notes\s+WHERE appointment_id IN \(\$1, \$2, \$3\)`).
		WithArgs("a1", "a2", "a3").
		WillReturnRows(sqlmock.NewRows([]string{"appointment_id", "count"}).AddRow("a1", 2).AddRow("a3", 1))

	counts, err := adapter.CountByAppointments(context.Background(), []string{"a1", "a2", "a3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a1": 2, "a3": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteAdapter_CountByAppointmentsEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	adapter := NewNoteAdapter(db)

	counts, err := adapter.CountByAppointments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteAdapter_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	adapter := NewNoteAdapter(db)

	mock.ExpectQuery(`INSERT INTO appointment_notes`).
		WithArgs("a1", "Called patient", "agent@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("n1", fixedTime))

	note := &entities.AppointmentNote{AppointmentID: "a1", NoteText: "  Called patient ", CreatedBy: "agent@example.com"}
	require.NoError(t, adapter.Create(context.Background(), note))
	assert.Equal(t, "n1", note.ID)
	assert.Equal(t, "Called patient", note.NoteText)
}

func TestNoteAdapter_CreateValidates(t *testing.T) {
	db, mock := setupMockDB(t)
	adapter := NewNoteAdapter(db)

	err := adapter.Create(context.Background(), &entities.AppointmentNote{AppointmentID: "a1", NoteText: "   "})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	long := strings.Repeat("x", entities.MaxNoteLength+1)
	err = adapter.Create(context.Background(), &entities.AppointmentNote{AppointmentID: "a1", NoteText: long})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteAdapter_DeleteMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	adapter := NewNoteAdapter(db)

	mock.ExpectExec(`DELETE FROM appointment_notes`).WithArgs("n9", "a1").WillReturnResult(sqlmock.NewResult(0, 0))

	err := adapter.Delete(context.Background(), "a1", "n9")
	assert.True(t, apperrors.IsNotFound(err))
}
