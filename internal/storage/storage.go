// Package storage is the document store: gorm for complaints, replies and
// profiles, Redis for the live change channel and the count cache.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict means a guarded update found the document in an unexpected state.
	ErrConflict      = errors.New("complaint changed concurrently")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Position is the sort key of a complaint in the createdAt-desc listing.
type Position struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// ListQuery is one page request. Filters come unmodified from access.Scope plus the status filter.
type ListQuery struct {
	Filters []access.Filter
	After   *Position
	Limit   int
}

// StatusChange is a row written by BulkUpdateStatus with the status it had before the write.
type StatusChange struct {
	From      models.Status
	Complaint models.Complaint
}

// Mutation is a conditional field update keyed by column name.
type Mutation struct {
	Fields map[string]interface{}
	// IfStatus restricts the update to documents currently in one of these statuses.
	IfStatus []models.Status
	// IfNotEscalated restricts the update to documents not yet escalated.
	IfNotEscalated bool
}

type Storage interface {
	GetProfile(ctx context.Context, id string) (*models.UserProfile, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	GetProfileByTelegramChat(ctx context.Context, chatID int64) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
	LinkTelegramChat(ctx context.Context, email string, chatID int64) (*models.UserProfile, error)

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, rc access.RoleContext, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, rc access.RoleContext, q ListQuery) ([]models.Complaint, error)
	CountComplaints(ctx context.Context, rc access.RoleContext, filters []access.Filter) (int64, error)
	UpdateComplaint(ctx context.Context, id string, m Mutation) (*models.Complaint, error)
	AppendReply(ctx context.Context, reply *models.Reply, status models.Status) (*models.Complaint, error)
	AddInternalNote(ctx context.Context, note *models.InternalNote) error
	BulkUpdateStatus(ctx context.Context, rc access.RoleContext, ids []string, fields map[string]interface{}) ([]StatusChange, error)
	DeleteComplaint(ctx context.Context, id string) error

	SaveNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, rc access.RoleContext, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, rc access.RoleContext, id uint) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client

	// Now is the server clock. Timestamps are truncated to microseconds so they
	// survive a Postgres round trip unchanged and cursors compare exactly.
	Now func() time.Time

	// OnChange receives every committed change in-process. It is used when no
	// Redis is configured and by tests.
	OnChange func(models.ComplaintEvent)
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Now:   func() time.Time { return time.Now() },
	}
}

// AutoMigrate creates or updates every table the store owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserProfile{},
		&models.Complaint{},
		&models.Reply{},
		&models.InternalNote{},
		&models.Notification{},
	)
}

func (s *Service) now() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}

// --- Profiles ---

func (s *Service) GetProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, profileError(err)
	}
	return &p, nil
}

func (s *Service) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&p).Error
	if err != nil {
		return nil, profileError(err)
	}
	return &p, nil
}

func (s *Service) GetProfileByTelegramChat(ctx context.Context, chatID int64) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.DB.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&p).Error; err != nil {
		return nil, profileError(err)
	}
	return &p, nil
}

// SaveProfile creates the profile or updates role, department and names of the existing one with the same email.
func (s *Service) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	return s.DB.WithContext(ctx).
		Where("email = ?", profile.Email).
		Assign(map[string]interface{}{
			"role":         profile.Role,
			"department":   profile.Department,
			"display_name": profile.DisplayName,
			"roll_no":      profile.RollNo,
		}).
		FirstOrCreate(profile).Error
}

func (s *Service) LinkTelegramChat(ctx context.Context, email string, chatID int64) (*models.UserProfile, error) {
	p, err := s.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(p).Update("telegram_chat_id", chatID).Error; err != nil {
		return nil, mapDBError(err)
	}
	p.TelegramChatID = chatID
	return p, nil
}

func profileError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, access.ErrProfileNotFound)
	}
	return mapDBError(err)
}

// --- Complaints ---

// CreateComplaint stamps the server timestamps and stores a new complaint.
func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	now := s.now()
	complaint.CreatedAt = now
	complaint.UpdatedAt = now
	if complaint.Status == "" {
		complaint.Status = models.StatusPending
	}

	if err := s.DB.WithContext(ctx).Omit("Replies", "InternalNotes").Create(complaint).Error; err != nil {
		return mapDBError(err)
	}

	s.publish(ctx, models.ComplaintEvent{Type: models.ChangeCreated, ComplaintID: complaint.ID, Complaint: stripThread(*complaint), At: now})
	return nil
}

// GetComplaint loads a complaint with its thread, if rc may read it.
func (s *Service) GetComplaint(ctx context.Context, rc access.RoleContext, id string) (*models.Complaint, error) {
	q := s.DB.WithContext(ctx).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
	if rc.Role.IsStaff() {
		q = q.Preload("InternalNotes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
	}

	var c models.Complaint
	if err := q.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, mapDBError(err)
	}
	if err := s.authorizeDocument(ctx, rc, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplaints returns one page ordered by createdAt desc, id desc.
func (s *Service) ListComplaints(ctx context.Context, rc access.RoleContext, q ListQuery) ([]models.Complaint, error) {
	if err := s.authorizeQuery(ctx, rc, q.Filters); err != nil {
		return nil, err
	}

	db, err := applyFilters(s.DB.WithContext(ctx).Model(&models.Complaint{}), q.Filters)
	if err != nil {
		return nil, err
	}
	db = applyAfter(db, q.After)
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	rows := make([]models.Complaint, 0)
	if err := db.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, mapDBError(err)
	}
	return rows, nil
}

// CountComplaints is the server-side aggregate for a filter set. Results are
// cached briefly in Redis and dropped on every write.
func (s *Service) CountComplaints(ctx context.Context, rc access.RoleContext, filters []access.Filter) (int64, error) {
	if err := s.authorizeQuery(ctx, rc, filters); err != nil {
		return 0, err
	}

	return s.cachedCount(ctx, countKey(filters), func() (int64, error) {
		db, err := applyFilters(s.DB.WithContext(ctx).Model(&models.Complaint{}), filters)
		if err != nil {
			return 0, err
		}
		var n int64
		if err := db.Count(&n).Error; err != nil {
			return 0, mapDBError(err)
		}
		return n, nil
	})
}

// UpdateComplaint applies m atomically and returns the stored document.
func (s *Service) UpdateComplaint(ctx context.Context, id string, m Mutation) (*models.Complaint, error) {
	now := s.now()
	var updated models.Complaint

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := make(map[string]interface{}, len(m.Fields)+1)
		for k, v := range m.Fields {
			fields[k] = v
		}
		fields["updated_at"] = now

		q := tx.Model(&models.Complaint{}).Where("id = ?", id)
		if len(m.IfStatus) > 0 {
			q = q.Where("status IN ?", statusStrings(m.IfStatus))
		}
		if m.IfNotEscalated {
			q = q.Where("is_escalated = ?", false)
		}
		res := q.Updates(fields)
		if res.Error != nil {
			return mapDBError(res.Error)
		}
		if err := tx.Where("id = ?", id).First(&updated).Error; err != nil {
			return mapDBError(err)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: id, Complaint: stripThread(updated), At: now})
	return &updated, nil
}

// AppendReply adds reply to its thread and, in the same transaction, moves the
// status to the value derived from the replier. A Resolved complaint keeps its status.
func (s *Service) AppendReply(ctx context.Context, reply *models.Reply, status models.Status) (*models.Complaint, error) {
	now := s.now()
	reply.CreatedAt = now
	var updated models.Complaint

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Complaint{}).Where("id = ?", reply.ComplaintID).Count(&exists).Error; err != nil {
			return mapDBError(err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		if err := tx.Create(reply).Error; err != nil {
			return mapDBError(err)
		}

		fields := map[string]interface{}{"updated_at": now}
		q := tx.Model(&models.Complaint{}).Where("id = ?", reply.ComplaintID)
		if status != "" {
			fields["status"] = status
			q = q.Where("status <> ?", models.StatusResolved)
		}
		if err := q.Updates(fields).Error; err != nil {
			return mapDBError(err)
		}
		return tx.Where("id = ?", reply.ComplaintID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: updated.ID, Complaint: stripThread(updated), At: now})
	return &updated, nil
}

func (s *Service) AddInternalNote(ctx context.Context, note *models.InternalNote) error {
	note.CreatedAt = s.now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Complaint{}).Where("id = ?", note.ComplaintID).Count(&exists).Error; err != nil {
			return mapDBError(err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return mapDBError(tx.Create(note).Error)
	})
}

// BulkUpdateStatus writes fields to every id in one transaction. If any id is
// missing or outside rc's scope nothing is written.
func (s *Service) BulkUpdateStatus(ctx context.Context, rc access.RoleContext, ids []string, fields map[string]interface{}) ([]StatusChange, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	now := s.now()
	var updated []models.Complaint
	before := make(map[string]models.Status, len(ids))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current []models.Complaint
		if err := tx.Where("id IN ?", ids).Find(&current).Error; err != nil {
			return mapDBError(err)
		}
		if len(current) != len(ids) {
			return fmt.Errorf("bulk update: %d of %d complaints found: %w", len(current), len(ids), ErrNotFound)
		}
		for _, c := range current {
			if err := s.authorizeDocumentTx(ctx, tx, rc, c); err != nil {
				return err
			}
			before[c.ID] = c.Status
		}

		values := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			values[k] = v
		}
		values["updated_at"] = now

		res := tx.Model(&models.Complaint{}).Where("id IN ?", ids).Updates(values)
		if res.Error != nil {
			return mapDBError(res.Error)
		}
		if res.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("bulk update: %d of %d rows written: %w", res.RowsAffected, len(ids), ErrConflict)
		}
		return tx.Where("id IN ?", ids).Order("created_at DESC").Find(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	changes := make([]StatusChange, len(updated))
	for i := range updated {
		changes[i] = StatusChange{From: before[updated[i].ID], Complaint: updated[i]}
		s.publish(ctx, models.ComplaintEvent{Type: models.ChangeUpdated, ComplaintID: updated[i].ID, Complaint: stripThread(updated[i]), At: now})
	}
	return changes, nil
}

// DeleteComplaint hard-deletes a complaint and its thread.
func (s *Service) DeleteComplaint(ctx context.Context, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("complaint_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return mapDBError(err)
		}
		if err := tx.Where("complaint_id = ?", id).Delete(&models.InternalNote{}).Error; err != nil {
			return mapDBError(err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Complaint{})
		if res.Error != nil {
			return mapDBError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, models.ComplaintEvent{Type: models.ChangeDeleted, ComplaintID: id, At: s.now()})
	return nil
}

// --- Notifications ---

func (s *Service) SaveNotification(ctx context.Context, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	return mapDBError(s.DB.WithContext(ctx).Create(n).Error)
}

// ListNotifications returns the newest notifications addressed to rc directly, to its role or to its department.
func (s *Service) ListNotifications(ctx context.Context, rc access.RoleContext, limit int) ([]models.Notification, error) {
	rows := make([]models.Notification, 0)
	err := s.recipientScope(s.DB.WithContext(ctx).Model(&models.Notification{}), rc).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, mapDBError(err)
	}
	return rows, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, rc access.RoleContext, id uint) error {
	res := s.recipientScope(s.DB.WithContext(ctx).Model(&models.Notification{}), rc).
		Where("id = ?", id).
		Update("read", true)
	if res.Error != nil {
		return mapDBError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) recipientScope(db *gorm.DB, rc access.RoleContext) *gorm.DB {
	cond := s.DB.Where("recipient_id = ?", rc.UserID)
	if rc.Role == models.RoleAdmin {
		cond = cond.Or("recipient_role = ?", models.RoleAdmin)
	}
	if rc.Role == models.RoleDepartment && rc.Dept.State == access.DeptResolved {
		cond = cond.Or("recipient_dept = ?", rc.Dept.Name)
	}
	return db.Where(cond)
}

func stripThread(c models.Complaint) *models.Complaint {
	c.Replies = nil
	c.InternalNotes = nil
	return &c
}

func statusStrings(in []models.Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
