package notify

import (
	"context"

	"kiitcms/backend/internal/models"
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
}

// InAppSink stores a Notification row the recipient reads through the API.
type InAppSink struct {
	Store NotificationStore
}

func (s InAppSink) Name() string { return "inapp" }

func (s InAppSink) Deliver(ctx context.Context, ev Event, msg Message) error {
	return s.Store.SaveNotification(ctx, &models.Notification{
		RecipientID:   ev.Recipient.UserID,
		RecipientRole: ev.Recipient.Role,
		RecipientDept: ev.Recipient.Dept,
		Kind:          string(ev.Kind),
		ComplaintID:   ev.ComplaintID,
		Title:         msg.Title,
		Body:          msg.Body,
		CreatedAt:     ev.At,
	})
}

// MailSink emails users directly, departments at their configured mailbox
// and administrators at the admin list.
type MailSink struct {
	Sender        Sender
	DeptMailboxes map[string]string
	AdminEmails   []string
}

func (s MailSink) Name() string { return "email" }

func (s MailSink) Deliver(ctx context.Context, ev Event, msg Message) error {
	to := s.addresses(ev.Recipient)
	if len(to) == 0 {
		return ErrNoRoute
	}
	return s.Sender.Send(ctx, to, msg.Title, msg.Body)
}

func (s MailSink) addresses(r Recipient) []string {
	switch {
	case r.UserID != "":
		if r.Email != "" {
			return []string{r.Email}
		}
	case r.Role == models.RoleAdmin:
		return s.AdminEmails
	case r.Dept != "":
		if addr, ok := s.DeptMailboxes[r.Dept]; ok && addr != "" {
			return []string{addr}
		}
	}
	return nil
}
