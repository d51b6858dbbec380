package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// MineralType is the main mineral mined at a site.
type MineralType string

const (
	MineralBauxite MineralType = "bauxite"
	MineralGold    MineralType = "or"
	MineralDiamond MineralType = "diamant"
	MineralIron    MineralType = "fer"
	MineralCopper  MineralType = "cuivre"
	MineralOther   MineralType = "autre"
)

// MineralTypes lists the accepted mineral types.
var MineralTypes = []MineralType{MineralBauxite, MineralGold, MineralDiamond, MineralIron, MineralCopper, MineralOther}

func (m MineralType) Valid() bool { return slices.Contains(MineralTypes, m) }

// SiteStatus is the operating state of a site.
type SiteStatus string

const (
	SiteActive    SiteStatus = "active"
	SiteSuspended SiteStatus = "suspended"
	SiteClosed    SiteStatus = "closed"
)

func (s SiteStatus) Valid() bool {
	return s == SiteActive || s == SiteSuspended || s == SiteClosed
}

// Site is a physical mining site.
type Site struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string      `gorm:"size:200;not null" json:"name"`
	MineralType MineralType `gorm:"size:20;not null" json:"mineral_type"`

	// Location
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `gorm:"type:text" json:"address,omitempty"`
	Region    string  `gorm:"size:100" json:"region,omitempty"`

	// ManagerID must reference a responsable_site user.
	ManagerID *uint `gorm:"index" json:"manager_id,omitempty"`
	Manager   *User `gorm:"foreignKey:ManagerID" json:"-"`

	Status           SiteStatus      `gorm:"size:20;not null;index" json:"status"`
	Capacity         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"capacity"`
	OperationalSince *Date           `json:"operational_since,omitempty"`
	LicenseNumber    string          `gorm:"size:100;uniqueIndex;not null" json:"license_number"`

	Stock *Stock `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"stock,omitempty"`
}

// SiteOperation is an entry in a site's operation history.
type SiteOperation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SiteID       uint      `gorm:"index;not null" json:"site_id"`
	Site         *Site     `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE" json:"-"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	RecordedByID *uint     `gorm:"index" json:"recorded_by,omitempty"`
	RecordedBy   *User     `gorm:"foreignKey:RecordedByID" json:"-"`
	Timestamp    time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}
