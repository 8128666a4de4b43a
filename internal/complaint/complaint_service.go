// Package complaint implements the complaint lifecycle: submission, replies,
// status changes, escalation, reopening and rating. Every write is scoped by
// the caller's RoleContext and checked against the eligibility rules before
// the store is touched. Notifications are emitted after the write and never
// affect its outcome.
package complaint

import (
	"context"
	"strings"
	"time"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/analysis"
	"kiitcms/backend/internal/apperr"
	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/logger"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/notify"
	"kiitcms/backend/internal/storage"

	"gorm.io/gorm"
)

// Service handles the business logic for complaints.
type Service struct {
	Storage   storage.Storage
	AI        analysis.Categorizer
	Events    notify.Emitter
	AITimeout time.Duration
	Now       func() time.Time
}

// NewService creates a new complaint service.
func NewService(s storage.Storage, ai analysis.Categorizer, events notify.Emitter) *Service {
	return &Service{
		Storage:   s,
		AI:        ai,
		Events:    events,
		AITimeout: config.DefaultAITimeout,
		Now:       time.Now,
	}
}

// SubmitRequest is what a student fills in.
type SubmitRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	IsAnonymous      bool   `json:"isAnonymous"`
	AttachmentURL    string `json:"attachmentURL"`
	TriageTranscript string `json:"triageTranscript"`
}

// Submit files a new complaint for a verified student. Categorization never
// blocks: when the AI fails the keyword fallback is used.
func (s *Service) Submit(ctx context.Context, rc access.RoleContext, req SubmitRequest) (*models.ComplaintView, error) {
	if rc.Role != models.RoleStudent || rc.UserID == "" {
		return nil, apperr.AccessDenied("only students can file complaints")
	}
	if !rc.Verified {
		return nil, apperr.AccessDenied("verify your email before filing a complaint")
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	switch {
	case title == "" || description == "":
		return nil, apperr.Validation("title and description are required")
	case len(title) > config.MaxTitleLength:
		return nil, apperr.Validation("title is too long")
	case len(description) > config.MaxDescriptionLength:
		return nil, apperr.Validation("description is too long")
	}

	triage := analysis.Triage(ctx, s.AI, title+"\n"+description, s.AITimeout)

	if transcript := strings.TrimSpace(req.TriageTranscript); transcript != "" {
		description += "\n\n" + config.TriageMarker + "\n" + transcript
	}

	c := &models.Complaint{
		Title:         title,
		Description:   description,
		Category:      triage.Category,
		AssignedDept:  triage.AssignedDept,
		Status:        models.StatusPending,
		IsAnonymous:   req.IsAnonymous,
		AttachmentURL: strings.TrimSpace(req.AttachmentURL),
		UserID:        rc.UserID,
		UserName:      rc.DisplayName,
		UserEmail:     rc.Email,
		UserRollNo:    rc.RollNo,
	}
	c.SetPriority(triage.Priority)

	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, storage.AppError(err, "could not save complaint")
	}

	logger.Info().
		Str("complaint_id", c.ID).
		Str("dept", c.AssignedDept).
		Str("priority", string(c.Priority)).
		Msg("complaint submitted")

	if c.AssignedDept != config.UnassignedDept {
		s.emit(notify.Event{Kind: notify.KindAssigned, Recipient: notify.ToDept(c.AssignedDept), Dept: c.AssignedDept}, c)
	}
	return s.view(rc, c), nil
}

// Get returns one complaint with its thread.
func (s *Service) Get(ctx context.Context, rc access.RoleContext, id string) (*models.ComplaintView, error) {
	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	return s.view(rc, c), nil
}

// Reply appends text to the thread. The status moves to Responded for staff
// and User Responded for the owner, in the same transaction as the append.
func (s *Service) Reply(ctx context.Context, rc access.RoleContext, id, text string) (*models.ComplaintView, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("reply cannot be empty")
	}
	if len(text) > config.MaxReplyLength {
		return nil, apperr.Validation("reply is too long")
	}

	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if !rc.Role.IsStaff() && !rc.IsOwner(*c) {
		return nil, apperr.ErrAccessDenied
	}

	reply := &models.Reply{
		ComplaintID: c.ID,
		Text:        text,
		AuthorID:    rc.UserID,
		AuthorName:  authorName(rc),
		AuthorRole:  rc.Role,
	}
	updated, err := s.Storage.AppendReply(ctx, reply, ReplyStatus(rc.Role))
	if err != nil {
		return nil, storage.AppError(err, "could not save reply")
	}

	if rc.Role.IsStaff() {
		s.emit(notify.Event{Kind: notify.KindRepliedTo, Recipient: notify.ToUser(updated.UserID).WithEmail(updated.UserEmail), Actor: reply.AuthorName}, updated)
	} else {
		s.emit(notify.Event{Kind: notify.KindRepliedTo, Recipient: deptRecipient(updated), Actor: "student"}, updated)
	}

	return s.Get(ctx, rc, id)
}

// UpdateStatus is a staff status edit. Entering Resolved stamps resolvedAt
// and notifies the owner.
func (s *Service) UpdateStatus(ctx context.Context, rc access.RoleContext, id string, status models.Status) (*models.ComplaintView, error) {
	if !rc.Role.IsStaff() {
		return nil, apperr.AccessDenied("only staff can change the status")
	}
	if err := ValidateEdit(status); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"status": status}
	if EntersResolved(c.Status, status) {
		fields["resolved_at"] = s.now()
	}
	updated, err := s.Storage.UpdateComplaint(ctx, id, storage.Mutation{
		Fields:   fields,
		IfStatus: []models.Status{c.Status},
	})
	if err != nil {
		return nil, storage.AppError(err, "could not update status")
	}

	logger.Info().Str("complaint_id", id).Str("from", string(c.Status)).Str("to", string(status)).Str("by", rc.UserID).Msg("status changed")

	if EntersResolved(c.Status, status) {
		s.emit(notify.Event{Kind: notify.KindStatusChanged, Recipient: notify.ToUser(updated.UserID).WithEmail(updated.UserEmail), Actor: authorName(rc)}, updated)
	}
	return s.view(rc, updated), nil
}

// BulkUpdateStatus moves every id to status in one atomic write: either all
// of them change or none do.
func (s *Service) BulkUpdateStatus(ctx context.Context, rc access.RoleContext, ids []string, status models.Status) ([]models.ComplaintView, error) {
	if !rc.Role.IsStaff() {
		return nil, apperr.AccessDenied("only staff can change the status")
	}
	if err := ValidateEdit(status); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperr.Validation("select at least one complaint")
	}

	fields := map[string]interface{}{"status": status}
	if status == models.StatusResolved {
		// Already-resolved rows keep their original stamp.
		fields["resolved_at"] = gorm.Expr("CASE WHEN status = ? THEN resolved_at ELSE ? END", models.StatusResolved, s.now())
	}

	changes, err := s.Storage.BulkUpdateStatus(ctx, rc, ids, fields)
	if err != nil {
		return nil, storage.AppError(err, "bulk update failed, nothing was changed")
	}

	logger.Info().Int("count", len(changes)).Str("to", string(status)).Str("by", rc.UserID).Msg("bulk status change")

	views := make([]models.ComplaintView, 0, len(changes))
	for i := range changes {
		c := &changes[i].Complaint
		if EntersResolved(changes[i].From, status) {
			s.emit(notify.Event{Kind: notify.KindStatusChanged, Recipient: notify.ToUser(c.UserID).WithEmail(c.UserEmail), Actor: authorName(rc)}, c)
		}
		views = append(views, *s.view(rc, c))
	}
	return views, nil
}

// Escalate flags a stale complaint for the administrators. Rejected before
// any write when the complaint is not eligible.
func (s *Service) Escalate(ctx context.Context, rc access.RoleContext, id string) (*models.ComplaintView, error) {
	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if err := CheckEscalate(*c, rc, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.Storage.UpdateComplaint(ctx, id, storage.Mutation{
		Fields:         map[string]interface{}{"is_escalated": true},
		IfStatus:       activeStatuses(),
		IfNotEscalated: true,
	})
	if err != nil {
		return nil, storage.AppError(err, "could not escalate complaint")
	}

	s.emit(notify.Event{Kind: notify.KindEscalated, Recipient: notify.ToRole(models.RoleAdmin), Dept: updated.AssignedDept}, updated)
	return s.view(rc, updated), nil
}

// Reopen returns a recently resolved complaint to active handling. resolvedAt is kept.
func (s *Service) Reopen(ctx context.Context, rc access.RoleContext, id string) (*models.ComplaintView, error) {
	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if err := CheckReopen(*c, rc, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.Storage.UpdateComplaint(ctx, id, storage.Mutation{
		Fields:   map[string]interface{}{"status": models.StatusReopened},
		IfStatus: []models.Status{models.StatusResolved},
	})
	if err != nil {
		return nil, storage.AppError(err, "could not reopen complaint")
	}

	s.emit(notify.Event{Kind: notify.KindReopened, Recipient: deptRecipient(updated)}, updated)
	return s.view(rc, updated), nil
}

// Rate records the owner's 1-5 rating of a resolved complaint.
func (s *Service) Rate(ctx context.Context, rc access.RoleContext, id string, rating int, comment string) (*models.ComplaintView, error) {
	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if err := CheckRate(*c, rc, rating); err != nil {
		return nil, err
	}

	updated, err := s.Storage.UpdateComplaint(ctx, id, storage.Mutation{
		Fields:   map[string]interface{}{"rating": rating, "rating_comment": strings.TrimSpace(comment)},
		IfStatus: []models.Status{models.StatusResolved},
	})
	if err != nil {
		return nil, storage.AppError(err, "could not save rating")
	}
	return s.view(rc, updated), nil
}

// AssignDepartment transfers a complaint. Admins can move any complaint;
// department staff only the ones currently in their department.
func (s *Service) AssignDepartment(ctx context.Context, rc access.RoleContext, id, dept string) (*models.ComplaintView, error) {
	if !rc.Role.IsStaff() {
		return nil, apperr.AccessDenied("only staff can assign complaints")
	}
	target := analysis.CanonicalDepartment(dept)
	if target == config.UnassignedDept && !strings.EqualFold(strings.TrimSpace(dept), config.UnassignedDept) {
		return nil, apperr.Validation("unknown department: " + dept)
	}

	c, err := s.load(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	if c.AssignedDept == target {
		return s.view(rc, c), nil
	}

	updated, err := s.Storage.UpdateComplaint(ctx, id, storage.Mutation{
		Fields: map[string]interface{}{"assigned_dept": target},
	})
	if err != nil {
		return nil, storage.AppError(err, "could not assign department")
	}

	logger.Info().Str("complaint_id", id).Str("from", c.AssignedDept).Str("to", target).Str("by", rc.UserID).Msg("department assigned")

	if target != config.UnassignedDept {
		s.emit(notify.Event{Kind: notify.KindAssigned, Recipient: notify.ToDept(target), Dept: target, Actor: authorName(rc)}, updated)
	}
	return s.view(rc, updated), nil
}

// AddInternalNote attaches a staff-only note.
func (s *Service) AddInternalNote(ctx context.Context, rc access.RoleContext, id, text string) (*models.ComplaintView, error) {
	if !rc.Role.IsStaff() {
		return nil, apperr.AccessDenied("only staff can add internal notes")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("note cannot be empty")
	}
	if len(text) > config.MaxReplyLength {
		return nil, apperr.Validation("note is too long")
	}

	if _, err := s.load(ctx, rc, id); err != nil {
		return nil, err
	}
	note := &models.InternalNote{ComplaintID: id, Text: text, AuthorID: rc.UserID, AuthorName: authorName(rc)}
	if err := s.Storage.AddInternalNote(ctx, note); err != nil {
		return nil, storage.AppError(err, "could not save note")
	}
	return s.Get(ctx, rc, id)
}

// Delete removes a complaint and its thread. Owner or admin only.
func (s *Service) Delete(ctx context.Context, rc access.RoleContext, id string) error {
	c, err := s.load(ctx, rc, id)
	if err != nil {
		return err
	}
	if !rc.IsOwner(*c) && rc.Role != models.RoleAdmin {
		return apperr.AccessDenied("only the owner or an administrator can delete a complaint")
	}
	if err := s.Storage.DeleteComplaint(ctx, id); err != nil {
		return storage.AppError(err, "could not delete complaint")
	}
	logger.Info().Str("complaint_id", id).Str("by", rc.UserID).Msg("complaint deleted")
	return nil
}

func (s *Service) load(ctx context.Context, rc access.RoleContext, id string) (*models.Complaint, error) {
	if id == "" {
		return nil, apperr.Validation("complaint id is required")
	}
	if !rc.Ready() {
		if rc.Dept.State == access.DeptFailed {
			return nil, apperr.AccessDenied("department could not be resolved for this account")
		}
		return nil, apperr.ErrNotReady
	}
	c, err := s.Storage.GetComplaint(ctx, rc, id)
	if err != nil {
		return nil, storage.AppError(err, "could not load complaint")
	}
	return c, nil
}

func (s *Service) view(rc access.RoleContext, c *models.Complaint) *models.ComplaintView {
	v := models.NewComplaintView(*c, rc.UserID, rc.Role)
	return &v
}

func (s *Service) now() time.Time {
	return s.Now().UTC().Truncate(time.Microsecond)
}

// emit is best effort: a full queue or missing dispatcher never fails the write.
func (s *Service) emit(ev notify.Event, c *models.Complaint) {
	if s.Events == nil {
		return
	}
	ev.ComplaintID = c.ID
	ev.ComplaintTitle = c.Title
	ev.Status = c.Status
	if ev.Dept == "" {
		ev.Dept = c.AssignedDept
	}
	ev.At = s.now()
	s.Events.Emit(ev)
}

// deptRecipient is the department handling c, or the administrators while it is unassigned.
func deptRecipient(c *models.Complaint) notify.Recipient {
	if c.AssignedDept == "" || c.AssignedDept == config.UnassignedDept {
		return notify.ToRole(models.RoleAdmin)
	}
	return notify.ToDept(c.AssignedDept)
}

func activeStatuses() []models.Status {
	out := make([]models.Status, 0, len(models.Statuses))
	for _, st := range models.Statuses {
		if Active(st) {
			out = append(out, st)
		}
	}
	return out
}

func authorName(rc access.RoleContext) string {
	if rc.DisplayName != "" {
		return rc.DisplayName
	}
	switch rc.Role {
	case models.RoleDepartment:
		if rc.Dept.Name != "" {
			return rc.Dept.Name
		}
		return "Department"
	case models.RoleAdmin:
		return "Administrator"
	}
	return rc.Email
}
