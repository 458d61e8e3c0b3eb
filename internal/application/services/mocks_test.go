package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
)

// MockAppointmentRepository

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListTabRows(ctx context.Context, filter repositories.AppointmentFilter, afterID string, limit int) ([]entities.TabRow, error) {
	args := m.Called(ctx, filter, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.TabRow), args.Error(1)
}

func (m *MockAppointmentRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*entities.Appointment, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ApplyPatch(ctx context.Context, id string, patch entities.AppointmentPatch) (*entities.Appointment, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) CycleColor(ctx context.Context, id string) (entities.ColorIndicator, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entities.ColorIndicator), args.Error(1)
}

func (m *MockAppointmentRepository) SetColor(ctx context.Context, id string, color entities.ColorIndicator) error {
	return m.Called(ctx, id, color).Error(0)
}

func (m *MockAppointmentRepository) ClaimUnparsed(ctx context.Context, limit int) ([]repositories.ParseClaim, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repositories.ParseClaim), args.Error(1)
}

func (m *MockAppointmentRepository) CompleteParse(ctx context.Context, id string, result *entities.ParseResult) error {
	return m.Called(ctx, id, result).Error(0)
}

func (m *MockAppointmentRepository) FailParse(ctx context.Context, id string, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

func (m *MockAppointmentRepository) ResetParsing(ctx context.Context, ids []string, projects []string) (int64, error) {
	args := m.Called(ctx, ids, projects)
	return args.Get(0).(int64), args.Error(1)
}

// MockNoteRepository

type MockNoteRepository struct {
	mock.Mock
}

func (m *MockNoteRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentNote, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AppointmentNote), args.Error(1)
}

func (m *MockNoteRepository) Create(ctx context.Context, note *entities.AppointmentNote) error {
	return m.Called(ctx, note).Error(0)
}

func (m *MockNoteRepository) Delete(ctx context.Context, appointmentID, noteID string) error {
	return m.Called(ctx, appointmentID, noteID).Error(0)
}

func (m *MockNoteRepository) CountByAppointments(ctx context.Context, ids []string) (map[string]int, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

// MockProjectRepository

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) List(ctx context.Context, names []string, activeOnly bool) ([]*entities.Project, error) {
	args := m.Called(ctx, names, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByName(ctx context.Context, name string) (*entities.Project, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Project), args.Error(1)
}

func (m *MockProjectRepository) Create(ctx context.Context, project *entities.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *MockProjectRepository) UpdatePortalPassword(ctx context.Context, name string, hash string) error {
	return m.Called(ctx, name, hash).Error(0)
}

func (m *MockProjectRepository) UpdateTimezone(ctx context.Context, name string, timezone string) error {
	return m.Called(ctx, name, timezone).Error(0)
}

// MockImportRepository

type MockImportRepository struct {
	mock.Mock
}

func (m *MockImportRepository) Import(ctx context.Context, imp *entities.CSVImport, records []repositories.ImportRecord) error {
	return m.Called(ctx, imp, records).Error(0)
}

func (m *MockImportRepository) FindLast(ctx context.Context, importType entities.ImportType, project string) (*entities.CSVImport, error) {
	args := m.Called(ctx, importType, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CSVImport), args.Error(1)
}

func (m *MockImportRepository) GetByID(ctx context.Context, id string) (*entities.CSVImport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CSVImport), args.Error(1)
}

func (m *MockImportRepository) Undo(ctx context.Context, id string) (*entities.UndoResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.UndoResult), args.Error(1)
}

// MockUserRepository

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User, role entities.Role, projects []string) error {
	return m.Called(ctx, user, role, projects).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetAccess(ctx context.Context, userID string) (entities.Role, []string, error) {
	args := m.Called(ctx, userID)
	var projects []string
	if args.Get(1) != nil {
		projects = args.Get(1).([]string)
	}
	return args.Get(0).(entities.Role), projects, args.Error(2)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID, hash string, mustChange bool) error {
	return m.Called(ctx, userID, hash, mustChange).Error(0)
}

func (m *MockUserRepository) ReplaceProjectAccess(ctx context.Context, userID string, projects []string) error {
	return m.Called(ctx, userID, projects).Error(0)
}

// recordingAudit captures security events

type recordingAudit struct {
	mu     sync.Mutex
	events []*entities.SecurityEvent
}

func (r *recordingAudit) Log(_ context.Context, event *entities.SecurityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) types() []entities.SecurityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entities.SecurityEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

// MockAppointmentProvider

type MockAppointmentProvider struct {
	mock.Mock
}

func (m *MockAppointmentProvider) GetCalendars(ctx context.Context, locationID string) ([]providers.Calendar, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.Calendar), args.Error(1)
}

func (m *MockAppointmentProvider) UpdateAppointmentStatus(ctx context.Context, appointmentID, status string) error {
	return m.Called(ctx, appointmentID, status).Error(0)
}

func (m *MockAppointmentProvider) SetContactDND(ctx context.Context, contactID string, dnd bool) error {
	return m.Called(ctx, contactID, dnd).Error(0)
}

func (m *MockAppointmentProvider) GetLocationTimezone(ctx context.Context, locationID string) (string, error) {
	args := m.Called(ctx, locationID)
	return args.String(0), args.Error(1)
}

// MockFunctionInvoker

type MockFunctionInvoker struct {
	mock.Mock
}

func (m *MockFunctionInvoker) Invoke(ctx context.Context, name string, payload interface{}, out interface{}) error {
	return m.Called(ctx, name, payload, out).Error(0)
}

// MemoryCache is an in-memory CacheProvider

type MemoryCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	patterns []string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: map[string][]byte{}}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// DeletePattern supports trailing-star globs only
func (c *MemoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// MemoryEventBus delivers published events to in-process subscribers

type MemoryEventBus struct {
	mu          sync.Mutex
	published   map[string][]*entities.ChangeEvent
	subscribers map[string][]chan *entities.ChangeEvent
}

func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		published:   map[string][]*entities.ChangeEvent{},
		subscribers: map[string][]chan *entities.ChangeEvent{},
	}
}

func (b *MemoryEventBus) Publish(_ context.Context, channel string, event *entities.ChangeEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], event)
	for _, ch := range b.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryEventBus) Subscribe(_ context.Context, channel string) (<-chan *entities.ChangeEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *entities.ChangeEvent, 16)
	b.subscribers[channel] = append(b.subscribers[channel], ch)
	return ch, nil
}

func (b *MemoryEventBus) Unsubscribe(_ context.Context, channel string) error {
	return nil
}

func (b *MemoryEventBus) Close() error {
	return nil
}

func (b *MemoryEventBus) Published(channel string) []*entities.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.ChangeEvent(nil), b.published[channel]...)
}

// helpers

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var (
	adminPrincipal = &entities.Principal{UserID: "u-admin", Email: "admin@example.com", Role: entities.RoleAdmin}
	agentPrincipal = &entities.Principal{UserID: "u-agent", Email: "agent@example.com", Role: entities.RoleAgent, Projects: []string{"acme"}}
	clientUser     = &entities.Principal{UserID: "u-client", Email: "client@acme.com", Role: entities.RoleProjectUser, Projects: []string{"acme"}}
)
