package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TruckStatus is the availability of a truck.
type TruckStatus string

const (
	TruckActive      TruckStatus = "active"
	TruckMaintenance TruckStatus = "maintenance"
	TruckRetired     TruckStatus = "retired"
)

// Truck is a vehicle that can be assigned to transports.
type Truck struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RegistrationNumber string          `gorm:"size:50;uniqueIndex;not null" json:"registration_number"`
	TruckType          string          `gorm:"size:100" json:"truck_type,omitempty"`
	CapacityTonnes     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"capacity_tonnes"`
	Owner              string          `gorm:"size:200" json:"owner,omitempty"`

	// DriverID references a chauffeur user.
	DriverID *uint `gorm:"index" json:"driver_id,omitempty"`
	Driver   *User `gorm:"foreignKey:DriverID" json:"-"`

	Status         TruckStatus `gorm:"size:20;not null" json:"status"`
	InspectionDate *Date       `json:"inspection_date,omitempty"`
}

// TransportStatus is a state of the transport state machine:
// planned -> in_transit -> arrived, planned -> cancelled.
type TransportStatus string

const (
	TransportPlanned   TransportStatus = "planned"
	TransportInTransit TransportStatus = "in_transit"
	TransportArrived   TransportStatus = "arrived"
	TransportCancelled TransportStatus = "cancelled"
)

// Transport is one shipment of extracted material, tracked by QR code.
type Transport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// QRCode is generated at creation and never changes.
	QRCode string `gorm:"size:36;uniqueIndex;not null" json:"qr_code"`

	ExtractionID uint        `gorm:"index;not null" json:"extraction_id"`
	Extraction   *Extraction `gorm:"foreignKey:ExtractionID" json:"-"`
	TruckID      *uint       `gorm:"index" json:"truck_id,omitempty"`
	Truck        *Truck      `gorm:"foreignKey:TruckID" json:"-"`

	DepartureLocation string     `gorm:"size:200" json:"departure_location"`
	Destination       string     `gorm:"size:200" json:"destination"`
	DepartureDate     *time.Time `json:"departure_date"`
	ArrivalDate       *time.Time `json:"arrival_date"`

	QuantityTransported decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity_transported"`
	Status              TransportStatus `gorm:"size:20;not null;index" json:"status"`

	// DriverID references a chauffeur user.
	DriverID *uint `gorm:"index" json:"driver_id,omitempty"`
	Driver   *User `gorm:"foreignKey:DriverID" json:"-"`

	GPSTracking bool   `gorm:"not null" json:"gps_tracking"`
	Notes       string `gorm:"type:text" json:"notes,omitempty"`

	Locations []TransportLocation `gorm:"foreignKey:TransportID;constraint:OnDelete:CASCADE" json:"locations,omitempty"`
}

// CanDepart reports whether a departure may be recorded.
func (t *Transport) CanDepart() bool { return t.Status == TransportPlanned }

// CanArrive reports whether an arrival may be recorded.
func (t *Transport) CanArrive() bool { return t.Status == TransportInTransit }

// CanCancel reports whether the transport may be cancelled.
func (t *Transport) CanCancel() bool { return t.Status == TransportPlanned }

// TransportLocation is one GPS breadcrumb. Breadcrumbs are append-only.
type TransportLocation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TransportID uint      `gorm:"index;not null" json:"transport_id"`
	Latitude    float64   `gorm:"not null" json:"latitude"`
	Longitude   float64   `gorm:"not null" json:"longitude"`
	RecordedAt  time.Time `gorm:"autoCreateTime;index" json:"recorded_at"`
}
