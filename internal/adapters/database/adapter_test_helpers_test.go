package database

import (
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
)

func newMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return postgres.NewClientFromDB(db), mock
}

var fixedTime = time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC)

func appointmentColumnNames() []string {
	names := make([]string, len(appointmentColumns))
	for i, c := range appointmentColumns {
		names[i] = c.(string)
	}
	return names
}

// appointmentRowValues returns one row in appointmentColumns order with the
// given overrides applied by column name.
func appointmentRowValues(overrides map[string]driver.Value) []driver.Value {
	base := map[string]driver.Value{
		"id":                        "appt-1",
		"project_name":              "acme",
		"date_of_appointment":       time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		"status":                    "Scheduled",
		"confirmed":                 false,
		"is_reserved_block":         false,
		"lead_name":                 "Jane Roe",
		"lead_email":                "jane@example.com",
		"internal_process_complete": false,
		"was_ever_confirmed":        false,
		"is_viewed":                 false,
		"color_indicator":           "none",
		"created_at":                fixedTime,
		"updated_at":                fixedTime,
	}
	for k, v := range overrides {
		base[k] = v
	}
	values := make([]driver.Value, len(appointmentColumns))
	for i, c := range appointmentColumns {
		values[i] = base[c.(string)]
	}
	return values
}
