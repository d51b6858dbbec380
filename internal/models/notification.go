package models

import "time"

// NotificationType is the domain a notification is about.
type NotificationType string

const (
	NotifyExtraction  NotificationType = "extraction"
	NotifyTransport   NotificationType = "transport"
	NotifyExport      NotificationType = "export"
	NotifyEnvironment NotificationType = "environment"
	NotifyAlert       NotificationType = "alert"
	NotifySystem      NotificationType = "system"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Notification is an in-app message to one user.
type Notification struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	RecipientID      uint             `gorm:"index;not null" json:"recipient_id"`
	Recipient        *User            `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
	Title            string           `gorm:"size:200;not null" json:"title"`
	Message          string           `gorm:"type:text" json:"message"`
	NotificationType NotificationType `gorm:"size:20;not null" json:"notification_type"`
	Priority         Priority         `gorm:"size:20;not null" json:"priority"`
	RelatedID        *uint            `json:"related_id,omitempty"`
	IsRead           bool             `gorm:"not null;index" json:"is_read"`
	ReadAt           *time.Time       `json:"read_at,omitempty"`
	SentAt           time.Time        `gorm:"autoCreateTime;index" json:"sent_at"`
}

// OwnerID is the recipient: a notification is private to them.
func (n *Notification) OwnerID() uint { return n.RecipientID }

// EmailStatus is the delivery state of an email.
type EmailStatus string

const (
	EmailPending EmailStatus = "pending"
	EmailSent    EmailStatus = "sent"
	EmailFailed  EmailStatus = "failed"
)

// EmailNotification is an outgoing email and its delivery outcome.
type EmailNotification struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	RecipientEmail string      `gorm:"size:255;not null;index" json:"recipient_email"`
	Subject        string      `gorm:"size:255;not null" json:"subject"`
	Body           string      `gorm:"type:text" json:"body"`
	Status         EmailStatus `gorm:"size:20;not null;index" json:"status"`
	ErrorMessage   string      `gorm:"type:text" json:"error_message,omitempty"`
	ScheduledFor   *time.Time  `json:"scheduled_for,omitempty"`
	SentAt         *time.Time  `json:"sent_at,omitempty"`
}
