package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const (
	projectsTable        = "projects"
	projectMessagesTable = "project_messages"
)

var projectColumns = []interface{}{
	"id", "project_name", "display_name", "logo_url", "primary_color",
	"portal_password_hash", "ghl_location_id", "timezone", "active",
	"created_at", "updated_at",
}

// ProjectAdapter implements the ProjectRepository interface
type ProjectAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProjectAdapter creates a new project adapter
func NewProjectAdapter(client *postgres.Client) repositories.ProjectRepository {
	return &ProjectAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// List retrieves projects ordered by name
func (a *ProjectAdapter) List(ctx context.Context, names []string, activeOnly bool) ([]*entities.Project, error) {
	ds := a.db.Select(projectColumns...).From(projectsTable)
	if names != nil {
		if len(names) == 0 {
			return []*entities.Project{}, nil
		}
		ds = ds.Where(goqu.Ex{"project_name": names})
	}
	if activeOnly {
		ds = ds.Where(goqu.C("active").IsTrue())
	}

	query, args, err := ds.Order(goqu.I("project_name").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list projects", err)
	}
	defer rows.Close()

	projects := []*entities.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan project", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate projects", err)
	}
	return projects, nil
}

// GetByName retrieves a project by its unique name
func (a *ProjectAdapter) GetByName(ctx context.Context, name string) (*entities.Project, error) {
	query, args, err := a.db.Select(projectColumns...).
		From(projectsTable).
		Where(goqu.Ex{"project_name": name}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	p, err := scanProject(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("project %s not found", name))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get project", err)
	}
	return p, nil
}

// Create inserts a project
func (a *ProjectAdapter) Create(ctx context.Context, project *entities.Project) error {
	query, args, err := a.db.Insert(projectsTable).
		Rows(goqu.Record{
			"project_name":         project.ProjectName,
			"display_name":         toNullString(project.DisplayName),
			"logo_url":             toNullString(project.LogoURL),
			"primary_color":        toNullString(project.PrimaryColor),
			"portal_password_hash": toNullString(project.PortalPasswordHash),
			"ghl_location_id":      toNullString(project.GHLLocationID),
			"timezone":             toNullString(project.Timezone),
			"active":               project.Active,
		}).
		Returning("id", "created_at", "updated_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if isUniqueViolation(err) {
		return apperrors.NewConflictError(fmt.Sprintf("project %s already exists", project.ProjectName))
	}
	if err != nil {
		return apperrors.NewInternalError("failed to create project", err)
	}
	return nil
}

// UpdatePortalPassword stores a new bcrypt hash for the portal
func (a *ProjectAdapter) UpdatePortalPassword(ctx context.Context, name string, hash string) error {
	return a.update(ctx, name, goqu.Record{"portal_password_hash": hash})
}

// UpdateTimezone stores the IANA zone reported by the CRM
func (a *ProjectAdapter) UpdateTimezone(ctx context.Context, name string, timezone string) error {
	return a.update(ctx, name, goqu.Record{"timezone": timezone})
}

func (a *ProjectAdapter) update(ctx context.Context, name string, record goqu.Record) error {
	record["updated_at"] = goqu.L("now()")
	query, args, err := a.db.Update(projectsTable).
		Set(record).
		Where(goqu.Ex{"project_name": name}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update project", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("project %s not found", name))
	}
	return nil
}

func scanProject(row rowScanner) (*entities.Project, error) {
	p := &entities.Project{}
	var display, logo, color, hash, location, tz sql.NullString
	err := row.Scan(
		&p.ID, &p.ProjectName, &display, &logo, &color,
		&hash, &location, &tz, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.DisplayName = nullString(display)
	p.LogoURL = nullString(logo)
	p.PrimaryColor = nullString(color)
	p.PortalPasswordHash = nullString(hash)
	p.GHLLocationID = nullString(location)
	p.Timezone = nullString(tz)
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ProjectMessageAdapter implements the ProjectMessageRepository interface
type ProjectMessageAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProjectMessageAdapter creates a new project message adapter
func NewProjectMessageAdapter(client *postgres.Client) repositories.ProjectMessageRepository {
	return &ProjectMessageAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create stores a team message
func (a *ProjectMessageAdapter) Create(ctx context.Context, msg *entities.ProjectMessage) error {
	query, args, err := a.db.Insert(projectMessagesTable).
		Rows(goqu.Record{
			"project_name": msg.ProjectName,
			"sender":       msg.Sender,
			"message":      msg.Message,
		}).
		Returning("id", "created_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return apperrors.NewInternalError("failed to create project message", err)
	}
	return nil
}

// ListByProject returns the newest messages first
func (a *ProjectMessageAdapter) ListByProject(ctx context.Context, project string, limit int) ([]*entities.ProjectMessage, error) {
	query, args, err := a.db.Select("id", "project_name", "sender", "message", "created_at").
		From(projectMessagesTable).
		Where(goqu.Ex{"project_name": project}).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list project messages", err)
	}
	defer rows.Close()

	messages := []*entities.ProjectMessage{}
	for rows.Next() {
		m := &entities.ProjectMessage{}
		if err := rows.Scan(&m.ID, &m.ProjectName, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan project message", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
