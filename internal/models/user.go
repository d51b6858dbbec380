package models

import (
	"strings"
	"time"

	"github.com/diewo77/sgm/internal/roles"
)

// User is an authenticated account. Its permissions come from Role only;
// ProfileID mirrors the role's persisted Profile and is kept in sync by the
// user service.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username  string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email     string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName string `gorm:"size:150" json:"first_name,omitempty"`
	LastName  string `gorm:"size:150" json:"last_name,omitempty"`
	Phone     string `gorm:"size:20" json:"phone,omitempty"`
	Password  string `gorm:"size:255;not null" json:"-"` // bcrypt hash

	Role     roles.Role `gorm:"size:20;not null;index" json:"role"`
	IsActive bool       `gorm:"not null" json:"is_active"`

	// Preferences
	DarkMode             bool   `gorm:"not null" json:"dark_mode"`
	ReceiveNotifications bool   `gorm:"not null" json:"receive_notifications"`
	Language             string `gorm:"size:10;not null" json:"language"`

	LastLoginIP string `gorm:"size:45" json:"-"`

	ProfileID *uint    `gorm:"index" json:"profile_id,omitempty"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"-"`
}

// FullName returns "First Last", falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// HasRole reports whether the user holds one of rs.
func (u *User) HasRole(rs ...roles.Role) bool {
	for _, r := range rs {
		if u.Role == r {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool { return u.Role == roles.Admin }

// OwnerID makes a user the owner of their own record.
func (u *User) OwnerID() uint { return u.ID }

// ActivityAction is the kind of event recorded in the activity log.
type ActivityAction string

const (
	ActivityLogin    ActivityAction = "login"
	ActivityLogout   ActivityAction = "logout"
	ActivityCreate   ActivityAction = "create"
	ActivityUpdate   ActivityAction = "update"
	ActivityDelete   ActivityAction = "delete"
	ActivityExport   ActivityAction = "export"
	ActivityDownload ActivityAction = "download"
)

// ActivityLog is an audit trail entry.
type ActivityLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      *uint          `gorm:"index" json:"user_id"`
	User        *User          `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	Action      ActivityAction `gorm:"size:20;not null" json:"action"`
	Description string         `gorm:"type:text" json:"description"`
	IPAddress   string         `gorm:"size:45" json:"ip_address,omitempty"`
	Timestamp   time.Time      `gorm:"autoCreateTime;index" json:"timestamp"`
}
