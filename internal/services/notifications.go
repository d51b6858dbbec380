package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/metrics"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

// Message is a notification fanned out to several users.
type Message struct {
	Title     string
	Body      string
	Type      models.NotificationType
	Priority  models.Priority
	RelatedID *uint
	// Email also queues an email for recipients who receive notifications.
	Email bool
}

// NotificationService stores in-app notifications and delivers emails.
type NotificationService struct {
	db     *gorm.DB
	mailer Mailer
	log    logger.Logger
	now    func() time.Time
}

func NewNotificationService(db *gorm.DB, mailer Mailer, log logger.Logger) *NotificationService {
	return &NotificationService{db: db, mailer: mailer, log: log, now: time.Now}
}

// Recipients returns the active users holding one of rs.
func (s *NotificationService) Recipients(tx *gorm.DB, rs ...roles.Role) ([]models.User, error) {
	var users []models.User
	err := tx.Where("is_active = ? AND role IN ?", true, roles.Strings(rs...)).Order("id").Find(&users).Error
	return users, err
}

// Fanout creates one notification per recipient inside tx and queues the
// emails. It returns the queued email ids, to be passed to Deliver once tx
// has committed.
func (s *NotificationService) Fanout(tx *gorm.DB, recipients []models.User, m Message) ([]uint, error) {
	if len(recipients) == 0 {
		return nil, nil
	}
	notifications := make([]models.Notification, 0, len(recipients))
	var emails []models.EmailNotification
	for _, u := range recipients {
		notifications = append(notifications, models.Notification{
			RecipientID:      u.ID,
			Title:            m.Title,
			Message:          m.Body,
			NotificationType: m.Type,
			Priority:         m.Priority,
			RelatedID:        m.RelatedID,
		})
		if m.Email && u.ReceiveNotifications && u.Email != "" {
			emails = append(emails, models.EmailNotification{
				RecipientEmail: u.Email,
				Subject:        m.Title,
				Body:           m.Body,
				Status:         models.EmailPending,
			})
		}
	}
	if err := tx.Create(&notifications).Error; err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	if err := tx.Create(&emails).Error; err != nil {
		return nil, err
	}
	ids := make([]uint, len(emails))
	for i, e := range emails {
		ids[i] = e.ID
	}
	return ids, nil
}

// NotifyRoles fans m out to the active users of rs.
func (s *NotificationService) NotifyRoles(tx *gorm.DB, m Message, rs ...roles.Role) ([]uint, error) {
	recipients, err := s.Recipients(tx, rs...)
	if err != nil {
		return nil, err
	}
	return s.Fanout(tx, recipients, m)
}

// QueueEmail stores a pending email.
func (s *NotificationService) QueueEmail(tx *gorm.DB, to, subject, body string) (uint, error) {
	email := models.EmailNotification{RecipientEmail: to, Subject: subject, Body: body, Status: models.EmailPending}
	if err := tx.Create(&email).Error; err != nil {
		return 0, err
	}
	return email.ID, nil
}

// Deliver sends the pending emails among ids and records each outcome on
// its row. Failures are logged, never returned.
func (s *NotificationService) Deliver(ctx context.Context, ids []uint) {
	if len(ids) == 0 {
		return
	}
	var emails []models.EmailNotification
	if err := s.db.WithContext(ctx).Where("id IN ? AND status = ?", ids, models.EmailPending).Find(&emails).Error; err != nil {
		s.log.Error("Failed to load queued emails", "error", err)
		return
	}
	for i := range emails {
		s.deliver(ctx, &emails[i], emails[i].Body)
	}
}

// SendPrivate delivers body right away but stores only stored on the email
// row, so secrets carried by body never reach the database. A failed
// private email can be resent, but only with the stored text.
func (s *NotificationService) SendPrivate(ctx context.Context, to, subject, body, stored string) error {
	email := models.EmailNotification{RecipientEmail: to, Subject: subject, Body: stored, Status: models.EmailPending}
	if err := s.db.WithContext(ctx).Create(&email).Error; err != nil {
		return err
	}
	s.deliver(ctx, &email, body)
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, e *models.EmailNotification, body string) {
	updates := map[string]any{}
	if err := s.mailer.Send(ctx, e.RecipientEmail, e.Subject, body); err != nil {
		s.log.Warn("Email delivery failed", "email_id", e.ID, "to", e.RecipientEmail, "error", err)
		updates["status"] = models.EmailFailed
		updates["error_message"] = err.Error()
		metrics.EmailsSent.WithLabelValues("failed").Inc()
	} else {
		now := s.now()
		updates["status"] = models.EmailSent
		updates["error_message"] = ""
		updates["sent_at"] = &now
		metrics.EmailsSent.WithLabelValues("sent").Inc()
	}
	if err := s.db.WithContext(ctx).Model(e).Updates(updates).Error; err != nil {
		s.log.Error("Failed to record email outcome", "email_id", e.ID, "error", err)
	}
}

// List returns the notifications of userID, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page Page) (List[models.Notification], error) {
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	return paginate[models.Notification](q, page, "sent_at DESC, id DESC")
}

// Get loads a notification regardless of its recipient; callers check
// ownership.
func (s *NotificationService) Get(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, notFoundOr(err, "notification")
	}
	return &n, nil
}

// MarkAsRead flags n as read. Already read notifications are unchanged.
func (s *NotificationService) MarkAsRead(ctx context.Context, n *models.Notification) error {
	if n.IsRead {
		return nil
	}
	now := s.now()
	if err := s.db.WithContext(ctx).Model(n).Updates(map[string]any{"is_read": true, "read_at": &now}).Error; err != nil {
		return err
	}
	n.IsRead, n.ReadAt = true, &now
	return nil
}

// MarkAllAsRead flags every unread notification of userID and returns how
// many changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": s.now()})
	return res.RowsAffected, res.Error
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).Count(&n).Error
	return n, err
}

// ListEmails returns emails newest first, optionally filtered by status.
func (s *NotificationService) ListEmails(ctx context.Context, status models.EmailStatus, page Page) (List[models.EmailNotification], error) {
	q := s.db.WithContext(ctx).Model(&models.EmailNotification{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return paginate[models.EmailNotification](q, page, "created_at DESC, id DESC")
}

// ResendEmail requeues a failed email and attempts delivery again.
func (s *NotificationService) ResendEmail(ctx context.Context, id uint) (*models.EmailNotification, error) {
	var e models.EmailNotification
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFoundOr(err, "email notification")
	}
	if e.Status != models.EmailFailed {
		return nil, conflict("only failed emails can be resent")
	}
	res := s.db.WithContext(ctx).Model(&models.EmailNotification{}).
		Where("id = ? AND status = ?", id, models.EmailFailed).
		Updates(map[string]any{"status": models.EmailPending, "error_message": ""})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflict("only failed emails can be resent")
	}
	s.Deliver(ctx, []uint{id})
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}
