package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// syncField pairs an appointment column with the lead column it is filled from
type syncField struct {
	target string
	source string
	json   bool
}

var syncFields = []syncField{
	{target: "patient_intake_notes", source: "patient_intake_notes"},
	{target: "dob", source: "dob"},
	{target: "lead_email", source: "email"},
	{target: "parsed_contact_info", source: "parsed_contact_info", json: true},
	{target: "parsed_demographics", source: "parsed_demographics", json: true},
	{target: "parsed_insurance_info", source: "parsed_insurance_info", json: true},
	{target: "parsed_pathology_info", source: "parsed_pathology_info", json: true},
	{target: "parsed_medical_info", source: "parsed_medical_info", json: true},
	{target: "detected_insurance_provider", source: "detected_insurance_provider"},
	{target: "detected_insurance_plan", source: "detected_insurance_plan"},
	{target: "detected_insurance_id", source: "detected_insurance_id"},
}

// syncMatch is the join condition of each strategy. Every one of them is
// additionally bound to the same project.
var syncMatch = map[entities.SyncStrategy]string{
	entities.SyncByCRMID:     `a.ghl_id = l.ghl_id AND NULLIF(a.ghl_id, '') IS NOT NULL`,
	entities.SyncByExactName: `a.lead_name = l.lead_name`,
	entities.SyncByNameCI:    `lower(trim(a.lead_name)) = lower(trim(l.lead_name))`,
	entities.SyncByPhone: `regexp_replace(a.lead_phone_number, '\D', '', 'g') = regexp_replace(l.phone_number, '\D', '', 'g')
		AND length(regexp_replace(a.lead_phone_number, '\D', '', 'g')) >= 7`,
}

// IntakeSyncAdapter implements the IntakeSyncRepository interface
type IntakeSyncAdapter struct {
	client *postgres.Client
}

// NewIntakeSyncAdapter creates a new intake sync adapter
func NewIntakeSyncAdapter(client *postgres.Client) repositories.IntakeSyncRepository {
	return &IntakeSyncAdapter{client: client}
}

// Sync runs every strategy in order within one transaction. Earlier
// strategies fill fields first so later, looser matches only see what is
// still empty.
func (a *IntakeSyncAdapter) Sync(ctx context.Context, project string) ([]entities.SyncStrategyResult, error) {
	results := make([]entities.SyncStrategyResult, 0, len(entities.SyncStrategies))

	err := a.client.WithTx(ctx, func(tx *sql.Tx) error {
		for _, strategy := range entities.SyncStrategies {
			query, args := buildSyncQuery(strategy, project)
			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("strategy %s: %w", strategy, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("strategy %s: %w", strategy, err)
			}
			results = append(results, entities.SyncStrategyResult{Strategy: strategy, Updated: n})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewInternalError("intake sync failed", err)
	}
	return results, nil
}

// buildSyncQuery renders the fill-only-empty UPDATE for one strategy
func buildSyncQuery(strategy entities.SyncStrategy, project string) (string, []interface{}) {
	sets := make([]string, 0, len(syncFields))
	needs := make([]string, 0, len(syncFields))
	for _, f := range syncFields {
		if f.json {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(a.%s, l.%s)", f.target, f.target, f.source))
			needs = append(needs, fmt.Sprintf("(a.%s IS NULL AND l.%s IS NOT NULL)", f.target, f.source))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = COALESCE(NULLIF(a.%s, ''), l.%s)", f.target, f.target, f.source))
		needs = append(needs, fmt.Sprintf("(NULLIF(a.%s, '') IS NULL AND NULLIF(l.%s, '') IS NOT NULL)", f.target, f.source))
	}
	sets = append(sets, "updated_at = now()")

	var b strings.Builder
	b.WriteString("UPDATE all_appointments AS a SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" FROM new_leads AS l WHERE a.project_name = l.project_name AND (")
	b.WriteString(syncMatch[strategy])
	b.WriteString(") AND (")
	b.WriteString(strings.Join(needs, " OR "))
	b.WriteString(")")

	var args []interface{}
	if project != "" {
		b.WriteString(" AND a.project_name = $1")
		args = append(args, project)
	}
	return b.String(), args
}
