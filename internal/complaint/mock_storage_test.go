package complaint_test

import (
	"context"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/notify"
	"kiitcms/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

func (m *MockStorage) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	args := m.Called(ctx, email)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

func (m *MockStorage) GetProfileByTelegramChat(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	args := m.Called(ctx, chatID)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

func (m *MockStorage) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockStorage) LinkTelegramChat(ctx context.Context, email string, chatID int64) (*models.UserProfile, error) {
	args := m.Called(ctx, email, chatID)
	p, _ := args.Get(0).(*models.UserProfile)
	return p, args.Error(1)
}

func (m *MockStorage) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStorage) GetComplaint(ctx context.Context, rc access.RoleContext, id string) (*models.Complaint, error) {
	args := m.Called(ctx, rc, id)
	c, _ := args.Get(0).(*models.Complaint)
	return c, args.Error(1)
}

func (m *MockStorage) ListComplaints(ctx context.Context, rc access.RoleContext, q storage.ListQuery) ([]models.Complaint, error) {
	args := m.Called(ctx, rc, q)
	rows, _ := args.Get(0).([]models.Complaint)
	return rows, args.Error(1)
}

func (m *MockStorage) CountComplaints(ctx context.Context, rc access.RoleContext, filters []access.Filter) (int64, error) {
	args := m.Called(ctx, rc, filters)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) UpdateComplaint(ctx context.Context, id string, mut storage.Mutation) (*models.Complaint, error) {
	args := m.Called(ctx, id, mut)
	c, _ := args.Get(0).(*models.Complaint)
	return c, args.Error(1)
}

func (m *MockStorage) AppendReply(ctx context.Context, reply *models.Reply, status models.Status) (*models.Complaint, error) {
	args := m.Called(ctx, reply, status)
	c, _ := args.Get(0).(*models.Complaint)
	return c, args.Error(1)
}

func (m *MockStorage) AddInternalNote(ctx context.Context, note *models.InternalNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockStorage) BulkUpdateStatus(ctx context.Context, rc access.RoleContext, ids []string, fields map[string]interface{}) ([]storage.StatusChange, error) {
	args := m.Called(ctx, rc, ids, fields)
	rows, _ := args.Get(0).([]storage.StatusChange)
	return rows, args.Error(1)
}

func (m *MockStorage) DeleteComplaint(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) SaveNotification(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockStorage) ListNotifications(ctx context.Context, rc access.RoleContext, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, rc, limit)
	rows, _ := args.Get(0).([]models.Notification)
	return rows, args.Error(1)
}

func (m *MockStorage) MarkNotificationRead(ctx context.Context, rc access.RoleContext, id uint) error {
	args := m.Called(ctx, rc, id)
	return args.Error(0)
}

// recorder is an Emitter that keeps every event. reject simulates a full queue.
type recorder struct {
	events []notify.Event
	reject bool
}

func (r *recorder) Emit(ev notify.Event) bool {
	if r.reject {
		return false
	}
	r.events = append(r.events, ev)
	return true
}
