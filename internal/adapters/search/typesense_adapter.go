package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	tsclient "github.com/zatekoja/intakedesk/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements appointment search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ providers.SearchProvider = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts appointment documents
func (a *TypesenseAdapter) Index(ctx context.Context, appointments ...*entities.Appointment) error {
	docs := a.client.Client().Collection(tsclient.AppointmentsCollection).Documents()
	var errs []error
	for _, appt := range appointments {
		if appt == nil {
			continue
		}
		if _, err := docs.Upsert(ctx, buildDocument(appt)); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", appt.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Delete removes documents by id. Missing documents are ignored.
func (a *TypesenseAdapter) Delete(ctx context.Context, ids ...string) error {
	col := a.client.Client().Collection(tsclient.AppointmentsCollection)
	var errs []error
	for _, id := range ids {
		if _, err := col.Document(id).Delete(ctx); err != nil && !isNotFound(err) {
			errs = append(errs, fmt.Errorf("delete %s from index: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Search matches q against patient name, phone and email
func (a *TypesenseAdapter) Search(ctx context.Context, q string, projects []string, limit int) ([]providers.AppointmentSearchHit, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("lead_name,lead_email,lead_phone_number,lead_phone_digits"),
		Page:    pointer.Int(1),
		PerPage: pointer.Int(limit),
	}
	if filter := projectFilter(projects); filter != "" {
		params.FilterBy = pointer.String(filter)
	}

	result, err := a.client.Client().Collection(tsclient.AppointmentsCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search appointments: %w", err)
	}

	hits := []providers.AppointmentSearchHit{}
	if result.Hits == nil {
		return hits, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		h := hitFromDocument(*hit.Document)
		if hit.TextMatch != nil {
			h.Score = float64(*hit.TextMatch)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func buildDocument(a *entities.Appointment) map[string]interface{} {
	doc := map[string]interface{}{
		"id":           a.ID,
		"project_name": a.ProjectName,
		"lead_name":    strings.TrimSpace(a.LeadName),
		"created_at":   a.CreatedAt.Unix(),
	}
	if a.LeadPhoneNumber != nil {
		doc["lead_phone_number"] = *a.LeadPhoneNumber
		doc["lead_phone_digits"] = digitsOnly(*a.LeadPhoneNumber)
	}
	if a.LeadEmail != nil {
		doc["lead_email"] = strings.ToLower(*a.LeadEmail)
	}
	if a.Status != nil {
		doc["status"] = *a.Status
	}
	if a.DateOfAppointment != nil {
		doc["date_of_appointment"] = a.DateOfAppointment.Format("2006-01-02")
	}
	return doc
}

func hitFromDocument(doc map[string]interface{}) providers.AppointmentSearchHit {
	str := func(key string) string {
		if v, ok := doc[key].(string); ok {
			return v
		}
		return ""
	}
	return providers.AppointmentSearchHit{
		ID:                str("id"),
		ProjectName:       str("project_name"),
		LeadName:          str("lead_name"),
		LeadPhoneNumber:   str("lead_phone_number"),
		LeadEmail:         str("lead_email"),
		Status:            str("status"),
		DateOfAppointment: str("date_of_appointment"),
	}
}

// projectFilter builds a filter_by clause. Names are backtick-quoted so
// commas and spaces in project names survive.
func projectFilter(projects []string) string {
	if len(projects) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(projects))
	for _, p := range projects {
		quoted = append(quoted, "`"+strings.ReplaceAll(p, "`", "")+"`")
	}
	return "project_name:=[" + strings.Join(quoted, ",") + "]"
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == 404
}
