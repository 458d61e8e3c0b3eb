package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const appointmentsTable = "all_appointments"

var appointmentColumns = []interface{}{
	"id", "ghl_id", "ghl_appointment_id", "project_name",
	"date_of_appointment", "requested_time", "date_appointment_created", "calendar_name",
	"status", "confirmed", "is_reserved_block",
	"lead_name", "lead_phone_number", "lead_email", "dob", "patient_intake_notes",
	"parsed_contact_info", "parsed_demographics", "parsed_insurance_info",
	"parsed_pathology_info", "parsed_medical_info",
	"detected_insurance_provider", "detected_insurance_plan", "detected_insurance_id",
	"ai_summary", "parsing_started_at", "parsing_completed_at", "parsing_error",
	"procedure_ordered", "internal_process_complete", "was_ever_confirmed", "is_viewed",
	"color_indicator", "created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List returns one page of appointments matching the filter
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(appointmentWhere(filter, true)...).
		Order(appointmentOrder()...)

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := []*entities.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}

// ListTabRows returns a keyset page of tab projections ordered by id
func (a *AppointmentAdapter) ListTabRows(ctx context.Context, filter repositories.AppointmentFilter, afterID string, limit int) ([]entities.TabRow, error) {
	where := appointmentWhere(filter, false)
	if afterID != "" {
		where = append(where, goqu.C("id").Gt(afterID))
	}

	query, args, err := a.db.Select("id", "status", "date_of_appointment", "procedure_ordered").
		From(appointmentsTable).
		Where(where...).
		Order(goqu.I("id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build tab count query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load tab rows", err)
	}
	defer rows.Close()

	out := make([]entities.TabRow, 0, limit)
	for rows.Next() {
		var (
			row       entities.TabRow
			status    sql.NullString
			date      sql.NullTime
			procedure sql.NullBool
		)
		if err := rows.Scan(&row.ID, &status, &date, &procedure); err != nil {
			return nil, apperrors.NewInternalError("failed to scan tab row", err)
		}
		row.Status = nullString(status)
		row.DateOfAppointment = nullTime(date)
		row.ProcedureOrdered = nullBool(procedure)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate tab rows", err)
	}
	return out, nil
}

// ListAfter returns full rows in id order, used by the search reindexer
func (a *AppointmentAdapter) ListAfter(ctx context.Context, afterID string, limit int) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).From(appointmentsTable)
	if afterID != "" {
		ds = ds.Where(goqu.C("id").Gt(afterID))
	}

	query, args, err := ds.Order(goqu.I("id").Asc()).Limit(uint(limit)).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var out []*entities.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From(appointmentsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appt, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appt, nil
}

// ApplyPatch updates workflow fields. project_name is never part of the record.
func (a *AppointmentAdapter) ApplyPatch(ctx context.Context, id string, patch entities.AppointmentPatch) (*entities.Appointment, error) {
	record := patchRecord(patch)
	if len(record) == 1 {
		return a.GetByID(ctx, id)
	}

	query, args, err := a.db.Update(appointmentsTable).
		Set(record).
		Where(goqu.Ex{"id": id}).
		Returning(appointmentColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	appt, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update appointment", err)
	}
	return appt, nil
}

func patchRecord(patch entities.AppointmentPatch) goqu.Record {
	record := goqu.Record{"updated_at": goqu.L("now()")}
	if patch.Status != nil {
		record["status"] = *patch.Status
		if entities.IsConfirmedStatus(patch.Status) {
			record["was_ever_confirmed"] = true
		}
	}
	if patch.SetProcedureOrdered {
		if patch.ProcedureOrdered == nil {
			record["procedure_ordered"] = nil
		} else {
			record["procedure_ordered"] = *patch.ProcedureOrdered
		}
	}
	if patch.InternalProcessComplete != nil {
		record["internal_process_complete"] = *patch.InternalProcessComplete
	}
	if patch.IsViewed != nil {
		record["is_viewed"] = *patch.IsViewed
	}
	if patch.Confirmed != nil {
		record["confirmed"] = *patch.Confirmed
		if *patch.Confirmed {
			record["was_ever_confirmed"] = true
		}
	}
	return record
}

// colorCycleExpr maps each stored color to its successor inside SQL so the
// read and the write happen in one statement.
func colorCycleExpr() exp.CaseExpression {
	c := goqu.Case().Value(goqu.C("color_indicator"))
	for _, color := range []entities.ColorIndicator{entities.ColorNone, entities.ColorYellow, entities.ColorGreen, entities.ColorRed} {
		c = c.When(string(color), string(color.Next()))
	}
	return c.Else(string(entities.ColorYellow))
}

// CycleColor advances color_indicator and returns the value now stored
func (a *AppointmentAdapter) CycleColor(ctx context.Context, id string) (entities.ColorIndicator, error) {
	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{
			"color_indicator": colorCycleExpr(),
			"updated_at":      goqu.L("now()"),
		}).
		Where(goqu.Ex{"id": id}).
		Returning("color_indicator").
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build color query", err)
	}

	var color string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&color)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return "", apperrors.NewInternalError("failed to cycle color", err)
	}
	return entities.ColorIndicator(color), nil
}

// SetColor stores an explicit color
func (a *AppointmentAdapter) SetColor(ctx context.Context, id string, color entities.ColorIndicator) error {
	if !color.IsValid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid color indicator %q", color))
	}

	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{"color_indicator": string(color), "updated_at": goqu.L("now()")}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build color query", err)
	}
	return a.execOne(ctx, query, args, id)
}

// ClaimUnparsed stamps parsing_started_at on a batch of never-claimed rows.
// SKIP LOCKED keeps concurrent workers from claiming the same row.
func (a *AppointmentAdapter) ClaimUnparsed(ctx context.Context, limit int) ([]repositories.ParseClaim, error) {
	candidates := a.db.From(appointmentsTable).
		Select("id").
		Where(
			goqu.C("parsing_completed_at").IsNull(),
			goqu.C("parsing_started_at").IsNull(),
			goqu.C("patient_intake_notes").IsNotNull(),
			goqu.C("patient_intake_notes").Neq(""),
		).
		Order(goqu.I("created_at").Asc()).
		Limit(uint(limit)).
		ForUpdate(exp.SkipLocked)

	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{"parsing_started_at": goqu.L("now()")}).
		Where(goqu.C("id").In(candidates)).
		Returning("id", "project_name", "patient_intake_notes").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build claim query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to claim appointments", err)
	}
	defer rows.Close()

	var claims []repositories.ParseClaim
	for rows.Next() {
		var c repositories.ParseClaim
		if err := rows.Scan(&c.ID, &c.ProjectName, &c.Notes); err != nil {
			return nil, apperrors.NewInternalError("failed to scan claim", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// CompleteParse stores parser output. Rows already completed are left alone.
func (a *AppointmentAdapter) CompleteParse(ctx context.Context, id string, result *entities.ParseResult) error {
	record := goqu.Record{
		"parsing_completed_at": goqu.L("now()"),
		"parsing_error":        nil,
		"updated_at":           goqu.L("now()"),
	}
	sections := map[string]interface{}{
		"parsed_contact_info":   result.ContactInfo,
		"parsed_demographics":   result.Demographics,
		"parsed_insurance_info": result.Insurance,
		"parsed_pathology_info": result.Pathology,
		"parsed_medical_info":   result.Medical,
	}
	for col, v := range sections {
		expr, err := jsonbValue(v)
		if err != nil {
			return apperrors.NewInternalError("failed to encode "+col, err)
		}
		if expr != nil {
			record[col] = expr
		}
	}
	setIfNotNil(record, "detected_insurance_provider", result.DetectedInsuranceProvider)
	setIfNotNil(record, "detected_insurance_plan", result.DetectedInsurancePlan)
	setIfNotNil(record, "detected_insurance_id", result.DetectedInsuranceID)
	setIfNotNil(record, "ai_summary", result.AISummary)

	query, args, err := a.db.Update(appointmentsTable).
		Set(record).
		Where(goqu.Ex{"id": id}, goqu.C("parsing_completed_at").IsNull()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build parse update", err)
	}

	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to store parse result", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("appointment %s already parsed or missing", id))
	}
	return nil
}

// FailParse records why parsing failed. The row stays claimed.
func (a *AppointmentAdapter) FailParse(ctx context.Context, id string, reason string) error {
	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{"parsing_error": reason, "updated_at": goqu.L("now()")}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build parse failure update", err)
	}
	return a.execOne(ctx, query, args, id)
}

// ResetParsing releases rows for another parse. Projects, when given, bound
// which rows may be touched.
func (a *AppointmentAdapter) ResetParsing(ctx context.Context, ids []string, projects []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	where := []exp.Expression{goqu.Ex{"id": ids}}
	if e := projectExpr(projects); e != nil {
		where = append(where, e)
	}

	query, args, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{
			"parsing_started_at":   nil,
			"parsing_completed_at": nil,
			"parsing_error":        nil,
			"updated_at":           goqu.L("now()"),
		}).
		Where(where...).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build reset query", err)
	}

	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to reset parsing", err)
	}
	return res.RowsAffected()
}

func (a *AppointmentAdapter) execOne(ctx context.Context, query string, args []interface{}, id string) error {
	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	a := &entities.Appointment{}
	var (
		ghlID, ghlApptID, requestedTime, calendarName, status     sql.NullString
		phone, email, dob, notes, aiSummary, parseErr             sql.NullString
		insProvider, insPlan, insID                               sql.NullString
		date, created, parseStarted, parseCompleted               sql.NullTime
		procedure                                                 sql.NullBool
		contact, demographics, insurance, pathology, medical, col []byte
	)

	err := row.Scan(
		&a.ID, &ghlID, &ghlApptID, &a.ProjectName,
		&date, &requestedTime, &created, &calendarName,
		&status, &a.Confirmed, &a.IsReservedBlock,
		&a.LeadName, &phone, &email, &dob, &notes,
		&contact, &demographics, &insurance, &pathology, &medical,
		&insProvider, &insPlan, &insID,
		&aiSummary, &parseStarted, &parseCompleted, &parseErr,
		&procedure, &a.InternalProcessComplete, &a.WasEverConfirmed, &a.IsViewed,
		&col, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.GHLID = nullString(ghlID)
	a.GHLAppointmentID = nullString(ghlApptID)
	a.DateOfAppointment = nullTime(date)
	a.RequestedTime = nullString(requestedTime)
	a.DateCreated = nullTime(created)
	a.CalendarName = nullString(calendarName)
	a.Status = nullString(status)
	a.LeadPhoneNumber = nullString(phone)
	a.LeadEmail = nullString(email)
	a.DOB = nullString(dob)
	a.PatientIntakeNotes = nullString(notes)
	a.DetectedInsuranceProvider = nullString(insProvider)
	a.DetectedInsurancePlan = nullString(insPlan)
	a.DetectedInsuranceID = nullString(insID)
	a.AISummary = nullString(aiSummary)
	a.ParsingStartedAt = nullTime(parseStarted)
	a.ParsingCompletedAt = nullTime(parseCompleted)
	a.ParsingError = nullString(parseErr)
	a.ProcedureOrdered = nullBool(procedure)
	a.ColorIndicator = entities.ColorIndicator(col)

	decodeParsed(&a.ParsedIntake, contact, demographics, insurance, pathology, medical)
	return a, nil
}

// decodeParsed fills the typed parsed sections. Malformed JSON from older
// parser versions is dropped rather than failing the read.
func decodeParsed(p *entities.ParsedIntake, contact, demographics, insurance, pathology, medical []byte) {
	p.ContactInfo = decodeSection[entities.ParsedContactInfo](contact)
	p.Demographics = decodeSection[entities.ParsedDemographics](demographics)
	p.Insurance = decodeSection[entities.ParsedInsurance](insurance)
	p.Pathology = decodeSection[entities.ParsedPathology](pathology)
	p.Medical = decodeSection[entities.ParsedMedical](medical)
}

