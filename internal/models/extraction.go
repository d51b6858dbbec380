package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ExtractionStatus has no enforced transitions; only completed extractions
// count toward stock.
type ExtractionStatus string

const (
	ExtractionPlanned    ExtractionStatus = "planned"
	ExtractionInProgress ExtractionStatus = "in_progress"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionCancelled  ExtractionStatus = "cancelled"
)

// ExtractionStatuses lists the accepted statuses.
var ExtractionStatuses = []ExtractionStatus{ExtractionPlanned, ExtractionInProgress, ExtractionCompleted, ExtractionCancelled}

func (s ExtractionStatus) Valid() bool { return slices.Contains(ExtractionStatuses, s) }

// Extraction is a recorded mining event at a site.
type Extraction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SiteID uint  `gorm:"index;not null" json:"site_id"`
	Site   *Site `gorm:"foreignKey:SiteID" json:"-"`

	ExtractionDate Date            `gorm:"not null;index" json:"extraction_date"`
	QuantityTonnes decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity_tonnes"`
	QualityGrade   string          `gorm:"size:50" json:"quality_grade,omitempty"`

	// OperatorID references an agent_minier or responsable_site user.
	OperatorID *uint `gorm:"index" json:"operator_id,omitempty"`
	Operator   *User `gorm:"foreignKey:OperatorID" json:"-"`

	Status ExtractionStatus `gorm:"size:20;not null;index" json:"status"`
	Notes  string           `gorm:"type:text" json:"notes,omitempty"`
}

// CountsTowardStock reports whether the extraction is part of its site's stock.
func (e *Extraction) CountsTowardStock() bool {
	return e.Status == ExtractionCompleted
}

// Stock is the derived inventory of one site. QuantityInStock always equals
// the sum of the site's completed extraction quantities.
type Stock struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SiteID          uint            `gorm:"uniqueIndex;not null" json:"site_id"`
	QuantityInStock decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"quantity_in_stock"`
	LastUpdated     time.Time       `gorm:"autoUpdateTime" json:"last_updated"`
}
