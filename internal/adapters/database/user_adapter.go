package database

import (
	"context"
	"database/sql"
	"encoding/json"
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

const (
	usersTable         = "users"
	userRolesTable     = "user_roles"
	projectAccessTable = "project_user_access"
	securityEventTable = "security_events"
)

var userColumns = []interface{}{
	"id", "email", "full_name", "password_hash", "must_change_password", "created_at", "updated_at",
}

// UserAdapter implements the UserRepository interface
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts the account, its role and its project access together
func (a *UserAdapter) Create(ctx context.Context, user *entities.User, role entities.Role, projects []string) error {
	userSQL, userArgs, err := a.db.Insert(usersTable).
		Rows(goqu.Record{
			"email":                user.Email,
			"full_name":            user.FullName,
			"password_hash":        user.PasswordHash,
			"must_change_password": user.MustChangePassword,
		}).
		Returning("id", "created_at", "updated_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	err = a.client.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, userSQL, userArgs...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}

		roleSQL, roleArgs, err := a.db.Insert(userRolesTable).
			Rows(goqu.Record{"user_id": user.ID, "role": string(role)}).
			ToSQL()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, roleSQL, roleArgs...); err != nil {
			return err
		}
		return a.insertAccess(ctx, tx, user.ID, projects)
	})
	if isUniqueViolation(err) {
		return apperrors.NewConflictError(fmt.Sprintf("user %s already exists", user.Email))
	}
	if err != nil {
		return apperrors.NewInternalError("failed to create user", err)
	}
	return nil
}

func (a *UserAdapter) insertAccess(ctx context.Context, tx *sql.Tx, userID string, projects []string) error {
	if len(projects) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, goqu.Record{"user_id": userID, "project_name": p})
	}
	query, args, err := a.db.Insert(projectAccessTable).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, id)
}

// GetByEmail retrieves a user by email, ignoring case
func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return a.getOne(ctx, goqu.Func("lower", goqu.C("email")).Eq(strings.ToLower(strings.TrimSpace(email))), email)
}

func (a *UserAdapter) getOne(ctx context.Context, where exp.Expression, key string) (*entities.User, error) {
	query, args, err := a.db.Select(userColumns...).From(usersTable).Where(where).Limit(1).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	u := &entities.User{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.MustChangePassword, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", key))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	return u, nil
}

// GetAccess resolves the role and project list from the database so tokens
// never carry authority on their own.
func (a *UserAdapter) GetAccess(ctx context.Context, userID string) (entities.Role, []string, error) {
	roleSQL, roleArgs, err := a.db.Select("role").From(userRolesTable).Where(goqu.Ex{"user_id": userID}).ToSQL()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to build query", err)
	}

	var role string
	err = a.client.DB().QueryRowContext(ctx, roleSQL, roleArgs...).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, apperrors.NewForbiddenError("user has no role")
	}
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to load role", err)
	}

	accessSQL, accessArgs, err := a.db.Select("project_name").
		From(projectAccessTable).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("project_name").Asc()).
		ToSQL()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, accessSQL, accessArgs...)
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to load project access", err)
	}
	defer rows.Close()

	projects := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return "", nil, apperrors.NewInternalError("failed to scan project access", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return "", nil, apperrors.NewInternalError("failed to iterate project access", err)
	}
	return entities.Role(role), projects, nil
}

// UpdatePassword stores a new hash and the change-required flag
func (a *UserAdapter) UpdatePassword(ctx context.Context, userID, hash string, mustChange bool) error {
	query, args, err := a.db.Update(usersTable).
		Set(goqu.Record{
			"password_hash":        hash,
			"must_change_password": mustChange,
			"updated_at":           goqu.L("now()"),
		}).
		Where(goqu.Ex{"id": userID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update password", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", userID))
	}
	return nil
}

// ReplaceProjectAccess swaps the whole access list in one transaction
func (a *UserAdapter) ReplaceProjectAccess(ctx context.Context, userID string, projects []string) error {
	deleteSQL, deleteArgs, err := a.db.Delete(projectAccessTable).Where(goqu.Ex{"user_id": userID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	err = a.client.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteSQL, deleteArgs...); err != nil {
			return err
		}
		return a.insertAccess(ctx, tx, userID, projects)
	})
	if err != nil {
		return apperrors.NewInternalError("failed to replace project access", err)
	}
	return nil
}

// SecurityEventAdapter implements the SecurityEventRepository interface
type SecurityEventAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSecurityEventAdapter creates a new security event adapter
func NewSecurityEventAdapter(client *postgres.Client) repositories.SecurityEventRepository {
	return &SecurityEventAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Log inserts a security event
func (a *SecurityEventAdapter) Log(ctx context.Context, event *entities.SecurityEvent) error {
	record := goqu.Record{
		"event_type": string(event.EventType),
		"severity":   string(event.Severity),
		"subject":    event.Subject,
		"ip_address": event.IPAddress,
	}
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return apperrors.NewInternalError("failed to encode event details", err)
		}
		record["details"] = goqu.L("?::jsonb", string(raw))
	}

	query, args, err := a.db.Insert(securityEventTable).
		Rows(record).
		Returning("id", "created_at").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&event.ID, &event.CreatedAt); err != nil {
		return apperrors.NewInternalError("failed to log security event", err)
	}
	return nil
}
