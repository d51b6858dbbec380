package models

import (
	"time"

	"github.com/diewo77/sgm/internal/gate"
)

// Profile is the persisted group of a role: one row per role, named after
// it, holding exactly the role's permissions. Rows are rebuilt by seeding.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	// Many-to-many via profile_permissions.
	Permissions []Permission `gorm:"many2many:profile_permissions;" json:"permissions,omitempty"`
}

// Permission is one "resource:action" grant.
type Permission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	ResourceType string    `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"resource_type"`
	Action       string    `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"action"`
	Description  string    `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in gate form.
func (p Permission) Code() gate.Permission {
	return gate.NewPermission(p.ResourceType, gate.Action(p.Action))
}
