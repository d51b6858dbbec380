package models

import (
	"slices"
	"time"
)

// MeasurementType is the quantity an environment measure records.
type MeasurementType string

const (
	MeasurePM25           MeasurementType = "pm25"
	MeasurePM10           MeasurementType = "pm10"
	MeasureCO2            MeasurementType = "co2"
	MeasureNoise          MeasurementType = "noise"
	MeasureWaterPH        MeasurementType = "water_ph"
	MeasureWaterTurbidity MeasurementType = "water_turbidity"
	MeasureSoilQuality    MeasurementType = "soil_quality"
	MeasureAirQuality     MeasurementType = "air_quality"
)

var measurementLabels = map[MeasurementType]string{
	MeasurePM25:           "PM2.5",
	MeasurePM10:           "PM10",
	MeasureCO2:            "CO2",
	MeasureNoise:          "Noise",
	MeasureWaterPH:        "Water pH",
	MeasureWaterTurbidity: "Water turbidity",
	MeasureSoilQuality:    "Soil quality",
	MeasureAirQuality:     "Air quality",
}

func (m MeasurementType) Valid() bool {
	_, ok := measurementLabels[m]
	return ok
}

// Label is the display name used in alert titles.
func (m MeasurementType) Label() string {
	if l, ok := measurementLabels[m]; ok {
		return l
	}
	return string(m)
}

// EnvironmentMeasure is one reading at a site. Measures are never updated.
type EnvironmentMeasure struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	SiteID          uint            `gorm:"index;not null" json:"site_id"`
	Site            *Site           `gorm:"foreignKey:SiteID" json:"-"`
	MeasurementType MeasurementType `gorm:"size:30;not null;index" json:"measurement_type"`
	Value           float64         `gorm:"not null" json:"value"`
	Unit            string          `gorm:"size:20" json:"unit,omitempty"`
	MeasuredAt      time.Time       `gorm:"not null;index" json:"measured_at"`
	MeasuredByID    *uint           `gorm:"index" json:"measured_by,omitempty"`
	MeasuredBy      *User           `gorm:"foreignKey:MeasuredByID" json:"-"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
}

// Severity is the level of a threshold breach.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityDanger   Severity = "danger"
	SeverityCritical Severity = "critical"
)

// EnvironmentThreshold holds the three ascending limits for one
// measurement type.
type EnvironmentThreshold struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	MeasurementType MeasurementType `gorm:"size:30;uniqueIndex;not null" json:"measurement_type"`
	Warning         float64         `gorm:"not null" json:"warning_threshold"`
	Danger          float64         `gorm:"not null" json:"danger_threshold"`
	Critical        float64         `gorm:"not null" json:"critical_threshold"`
	Unit            string          `gorm:"size:20" json:"unit,omitempty"`
}

// Ordered reports warning <= danger <= critical.
func (t *EnvironmentThreshold) Ordered() bool {
	return t.Warning <= t.Danger && t.Danger <= t.Critical
}

// Classify compares value against the limits from the highest down and
// returns the breached severity with its limit. ok is false when no limit
// is strictly exceeded.
func (t *EnvironmentThreshold) Classify(value float64) (severity Severity, limit float64, ok bool) {
	switch {
	case value > t.Critical:
		return SeverityCritical, t.Critical, true
	case value > t.Danger:
		return SeverityDanger, t.Danger, true
	case value > t.Warning:
		return SeverityWarning, t.Warning, true
	default:
		return "", 0, false
	}
}

// AlertStatus is the handling state of an alert.
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

var AlertStatuses = []AlertStatus{AlertActive, AlertAcknowledged, AlertResolved}

func (s AlertStatus) Valid() bool { return slices.Contains(AlertStatuses, s) }

// EnvironmentAlert links a measure to the threshold it breached.
type EnvironmentAlert struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	SiteID         uint                `gorm:"index;not null" json:"site_id"`
	MeasureID      uint                `gorm:"index;not null" json:"measure_id"`
	Measure        *EnvironmentMeasure `gorm:"foreignKey:MeasureID" json:"-"`
	Title          string              `gorm:"size:200;not null" json:"title"`
	Description    string              `gorm:"type:text" json:"description"`
	ThresholdValue float64             `json:"threshold_value"`
	ActualValue    float64             `json:"actual_value"`
	Severity       Severity            `gorm:"size:20;not null;index" json:"severity"`
	Status         AlertStatus         `gorm:"size:20;not null;index" json:"status"`
	TriggeredAt    time.Time           `gorm:"autoCreateTime;index" json:"triggered_at"`
	ResolvedAt     *time.Time          `json:"resolved_at,omitempty"`
	AssignedToID   *uint               `gorm:"index" json:"assigned_to,omitempty"`
}
