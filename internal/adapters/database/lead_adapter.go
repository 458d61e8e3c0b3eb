package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const leadsTable = "new_leads"

var leadColumns = []interface{}{
	"id", "project_name", "ghl_id", "lead_name", "first_name", "last_name",
	"phone_number", "email", "dob", "patient_intake_notes",
	"parsed_contact_info", "parsed_demographics", "parsed_insurance_info",
	"parsed_pathology_info", "parsed_medical_info",
	"detected_insurance_provider", "detected_insurance_plan", "detected_insurance_id",
	"created_at", "updated_at",
}

// LeadAdapter implements the LeadRepository interface
type LeadAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewLeadAdapter creates a new lead adapter
func NewLeadAdapter(client *postgres.Client) repositories.LeadRepository {
	return &LeadAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List retrieves leads newest first
func (a *LeadAdapter) List(ctx context.Context, q entities.LeadQuery) ([]*entities.Lead, error) {
	var where []exp.Expression
	if e := projectExpr(q.Projects); e != nil {
		where = append(where, e)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := likePattern(term)
		where = append(where, goqu.Or(
			goqu.C("lead_name").ILike(pattern),
			goqu.C("phone_number").ILike(pattern),
			goqu.C("email").ILike(pattern),
		))
	}

	ds := a.db.Select(leadColumns...).
		From(leadsTable).
		Where(where...).
		Order(goqu.I("created_at").Desc())
	if q.PageSize > 0 {
		ds = ds.Limit(uint(q.PageSize))
		if q.Page > 1 {
			ds = ds.Offset(uint((q.Page - 1) * q.PageSize))
		}
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list leads", err)
	}
	defer rows.Close()

	leads := []*entities.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan lead", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate leads", err)
	}
	return leads, nil
}

// GetByID retrieves a lead by ID
func (a *LeadAdapter) GetByID(ctx context.Context, id string) (*entities.Lead, error) {
	query, args, err := a.db.Select(leadColumns...).
		From(leadsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	l, err := scanLead(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("lead with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get lead", err)
	}
	return l, nil
}

func scanLead(row rowScanner) (*entities.Lead, error) {
	l := &entities.Lead{}
	var (
		ghlID, first, last, phone, email, dob, notes sql.NullString
		insProvider, insPlan, insID                  sql.NullString
		contact, demographics, insurance             []byte
		pathology, medical                           []byte
	)
	err := row.Scan(
		&l.ID, &l.ProjectName, &ghlID, &l.LeadName, &first, &last,
		&phone, &email, &dob, &notes,
		&contact, &demographics, &insurance, &pathology, &medical,
		&insProvider, &insPlan, &insID,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.GHLID = nullString(ghlID)
	l.FirstName = nullString(first)
	l.LastName = nullString(last)
	l.PhoneNumber = nullString(phone)
	l.Email = nullString(email)
	l.DOB = nullString(dob)
	l.PatientIntakeNotes = nullString(notes)
	l.DetectedInsuranceProvider = nullString(insProvider)
	l.DetectedInsurancePlan = nullString(insPlan)
	l.DetectedInsuranceID = nullString(insID)
	decodeParsed(&l.ParsedIntake, contact, demographics, insurance, pathology, medical)
	return l, nil
}
