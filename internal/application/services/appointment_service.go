package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const (
	tabCountsCacheTTL    = 60
	tabCountsCachePrefix = "tabcounts:"
	crmCallTimeout       = 15 * time.Second
)

// AppointmentQuery is a dashboard listing request before scoping
type AppointmentQuery struct {
	Project  string
	Tab      *entities.Tab
	Search   string
	Page     int
	PageSize int
}

// AppointmentService implements the appointment dashboard operations
type AppointmentService struct {
	repo   repositories.AppointmentRepository
	notes  repositories.NoteRepository
	search providers.SearchProvider
	cache  providers.CacheProvider
	events providers.EventBus
	crm    providers.AppointmentProvider
	today  *TodayResolver
	// async runs CRM side effects after the response is decided
	async func(func())
}

// NewAppointmentService creates a new appointment service. search, cache,
// events and crm may be nil.
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	notes repositories.NoteRepository,
	search providers.SearchProvider,
	cache providers.CacheProvider,
	events providers.EventBus,
	crm providers.AppointmentProvider,
	today *TodayResolver,
) *AppointmentService {
	return &AppointmentService{
		repo:   repo,
		notes:  notes,
		search: search,
		cache:  cache,
		events: events,
		crm:    crm,
		today:  today,
		async:  func(f func()) { go f() },
	}
}

// List returns a page of appointments the principal may see, with note counts
func (s *AppointmentService) List(ctx context.Context, principal *entities.Principal, q AppointmentQuery) (*Page[*entities.AppointmentListItem], error) {
	projects, err := scope(principal, q.Project)
	if err != nil {
		return nil, err
	}
	filter := repositories.AppointmentFilter{
		Projects: projects,
		Tab:      q.Tab,
		Search:   q.Search,
	}
	return s.list(ctx, filter, q.Page, q.PageSize)
}

// ListPortal lists confirmed appointments of one project for its portal
func (s *AppointmentService) ListPortal(ctx context.Context, project string, tab *entities.Tab, page, pageSize int) (*Page[*entities.AppointmentListItem], error) {
	if project == "" {
		return nil, apperrors.NewValidationError("portal listing requires a project")
	}
	filter := repositories.AppointmentFilter{
		Projects: []string{project},
		Portal:   true,
		Tab:      tab,
	}
	return s.list(ctx, filter, page, pageSize)
}

func (s *AppointmentService) list(ctx context.Context, filter repositories.AppointmentFilter, page, pageSize int) (*Page[*entities.AppointmentListItem], error) {
	page, pageSize, filter.Limit, filter.Offset = normalizePage(page, pageSize)
	filter.Today = s.today.Today(ctx, filter.Projects)

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*entities.AppointmentListItem, len(rows))
	ids := make([]string, len(rows))
	for i, a := range rows {
		items[i] = &entities.AppointmentListItem{Appointment: a}
		ids[i] = a.ID
	}

	if len(ids) > 0 && s.notes != nil {
		counts, errs := newNoteCountLoader(s.notes).LoadMany(ctx, ids)()
		for i := range items {
			if i < len(errs) && errs[i] != nil {
				log.Warn().Err(errs[i]).Str("appointment_id", ids[i]).Msg("note count unavailable")
				continue
			}
			items[i].NoteCount = counts[i]
		}
	}

	return &Page[*entities.AppointmentListItem]{Data: items, Page: page, PageSize: pageSize}, nil
}

// CountTabs returns per-tab counts for the principal's scope
func (s *AppointmentService) CountTabs(ctx context.Context, principal *entities.Principal, project string) (*entities.TabCounts, error) {
	projects, err := scope(principal, project)
	if err != nil {
		return nil, err
	}
	return s.countTabs(ctx, repositories.AppointmentFilter{Projects: projects})
}

// CountPortalTabs returns tab counts of a project's portal
func (s *AppointmentService) CountPortalTabs(ctx context.Context, project string) (*entities.TabCounts, error) {
	return s.countTabs(ctx, repositories.AppointmentFilter{Projects: []string{project}, Portal: true})
}

// CountProjectTabs counts one project without a principal. Used by analytics.
func (s *AppointmentService) CountProjectTabs(ctx context.Context, project string) (*entities.TabCounts, error) {
	return s.countTabs(ctx, repositories.AppointmentFilter{Projects: []string{project}})
}

func tabCountsKey(filter repositories.AppointmentFilter) string {
	mode := "dash"
	if filter.Portal {
		mode = "portal"
	}
	scopeKey := "all"
	if len(filter.Projects) > 0 {
		p := slices.Clone(filter.Projects)
		slices.Sort(p)
		scopeKey = strings.Join(p, ",")
	}
	return fmt.Sprintf("%s%s:%s:%s", tabCountsCachePrefix, mode, scopeKey, filter.Today.Format("2006-01-02"))
}

// countTabs pages through matching rows by id in fixed batches and
// classifies each row in memory
func (s *AppointmentService) countTabs(ctx context.Context, filter repositories.AppointmentFilter) (*entities.TabCounts, error) {
	filter.Today = s.today.Today(ctx, filter.Projects)
	key := tabCountsKey(filter)

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var counts entities.TabCounts
			if json.Unmarshal(data, &counts) == nil {
				return &counts, nil
			}
		}
	}

	counts := &entities.TabCounts{}
	afterID := ""
	for {
		rows, err := s.repo.ListTabRows(ctx, filter, afterID, repositories.TabCountBatchSize)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			counts.Add(row, filter.Today)
		}
		if len(rows) < repositories.TabCountBatchSize {
			break
		}
		afterID = rows[len(rows)-1].ID
	}

	if s.cache != nil {
		if data, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, key, data, tabCountsCacheTTL); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("failed to cache tab counts")
			}
		}
	}
	return counts, nil
}

// Search runs a full-text lookup limited to the principal's projects
func (s *AppointmentService) Search(ctx context.Context, principal *entities.Principal, q, project string, limit int) ([]providers.AppointmentSearchHit, error) {
	projects, err := scope(principal, project)
	if err != nil {
		return nil, err
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.NewValidationError("search query is required")
	}
	if s.search == nil {
		return nil, apperrors.NewExternalError("search is not configured", nil)
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return s.search.Search(ctx, q, projects, limit)
}

// Get returns one appointment the principal may see
func (s *AppointmentService) Get(ctx context.Context, principal *entities.Principal, id string) (*entities.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAccess(principal, a.ProjectName); err != nil {
		return nil, err
	}
	return a, nil
}

// Patch applies a workflow update. A status change is mirrored to the CRM
// in the background; CRM failures are logged only.
func (s *AppointmentService) Patch(ctx context.Context, principal *entities.Principal, id string, patch entities.AppointmentPatch) (*entities.Appointment, error) {
	if _, err := s.Get(ctx, principal, id); err != nil {
		return nil, err
	}
	updated, err := s.repo.ApplyPatch(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, providers.EventChannelAppointmentUpdates,
		entities.NewChangeEvent(updated.ProjectName, entities.ChangeEventUpdated, updated.ID))

	if patch.Status != nil && s.crm != nil && updated.GHLAppointmentID != nil && *updated.GHLAppointmentID != "" {
		ghlID, status := *updated.GHLAppointmentID, *patch.Status
		s.async(func() {
			ctx, cancel := context.WithTimeout(context.Background(), crmCallTimeout)
			defer cancel()
			if err := s.crm.UpdateAppointmentStatus(ctx, ghlID, status); err != nil {
				log.Warn().Err(err).
					Str("appointment_id", id).
					Str("ghl_appointment_id", ghlID).
					Msg("CRM status update failed")
			}
		})
	}
	return updated, nil
}

// CycleColor advances the color indicator and returns the stored value
func (s *AppointmentService) CycleColor(ctx context.Context, principal *entities.Principal, id string) (entities.ColorIndicator, error) {
	a, err := s.Get(ctx, principal, id)
	if err != nil {
		return "", err
	}
	color, err := s.repo.CycleColor(ctx, id)
	if err != nil {
		return "", err
	}
	publish(ctx, s.events, providers.EventChannelAppointmentUpdates,
		entities.NewChangeEvent(a.ProjectName, entities.ChangeEventUpdated, id))
	return color, nil
}

// SetColor stores an explicit color indicator
func (s *AppointmentService) SetColor(ctx context.Context, principal *entities.Principal, id, value string) (entities.ColorIndicator, error) {
	color, err := entities.ParseColorIndicator(value)
	if err != nil {
		return "", apperrors.NewValidationError(err.Error())
	}
	a, err := s.Get(ctx, principal, id)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetColor(ctx, id, color); err != nil {
		return "", err
	}
	publish(ctx, s.events, providers.EventChannelAppointmentUpdates,
		entities.NewChangeEvent(a.ProjectName, entities.ChangeEventUpdated, id))
	return color, nil
}

// SetDND toggles do-not-disturb on the appointment's CRM contact
func (s *AppointmentService) SetDND(ctx context.Context, principal *entities.Principal, id string, dnd bool) error {
	a, err := s.Get(ctx, principal, id)
	if err != nil {
		return err
	}
	if s.crm == nil {
		return apperrors.NewExternalError("GHL not configured", nil)
	}
	if a.GHLID == nil || *a.GHLID == "" {
		return apperrors.NewValidationError("appointment has no CRM contact")
	}
	if err := s.crm.SetContactDND(ctx, *a.GHLID, dnd); err != nil {
		return apperrors.NewExternalError("failed to update CRM contact", err)
	}
	return nil
}

// ListNotes returns the notes of an appointment, newest first
func (s *AppointmentService) ListNotes(ctx context.Context, principal *entities.Principal, appointmentID string) ([]*entities.AppointmentNote, error) {
	if _, err := s.Get(ctx, principal, appointmentID); err != nil {
		return nil, err
	}
	return s.notes.ListByAppointment(ctx, appointmentID)
}

// AddNote appends a note written by the principal
func (s *AppointmentService) AddNote(ctx context.Context, principal *entities.Principal, appointmentID, text string) (*entities.AppointmentNote, error) {
	if _, err := s.Get(ctx, principal, appointmentID); err != nil {
		return nil, err
	}
	note := &entities.AppointmentNote{
		AppointmentID: appointmentID,
		NoteText:      text,
		CreatedBy:     principal.Email,
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote removes a note. Admin only.
func (s *AppointmentService) DeleteNote(ctx context.Context, principal *entities.Principal, appointmentID, noteID string) error {
	if !principal.IsAdmin() {
		return apperrors.NewForbiddenError("only admins may delete notes")
	}
	return s.notes.Delete(ctx, appointmentID, noteID)
}

// InvalidateTabCounts drops every cached tab count
func (s *AppointmentService) InvalidateTabCounts(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, tabCountsCachePrefix+"*")
}
