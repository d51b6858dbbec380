package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ExportStatus is a state of the export approval workflow.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportApproved  ExportStatus = "approved"
	ExportRejected  ExportStatus = "rejected"
	ExportShipped   ExportStatus = "shipped"
	ExportDelivered ExportStatus = "delivered"
)

// exportTransitions holds the allowed moves; rejected and delivered are final.
var exportTransitions = map[ExportStatus][]ExportStatus{
	ExportPending:  {ExportApproved, ExportRejected},
	ExportApproved: {ExportShipped},
	ExportShipped:  {ExportDelivered},
}

// CanTransition reports whether from -> to is allowed.
func (from ExportStatus) CanTransition(to ExportStatus) bool {
	return slices.Contains(exportTransitions[from], to)
}

// PaymentStatus tracks how much of an export has been paid.
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
)

// Export is a customs-regulated sale of transported material.
type Export struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReferenceNumber string     `gorm:"size:100;uniqueIndex;not null" json:"reference_number"`
	TransportID     uint       `gorm:"index;not null" json:"transport_id"`
	Transport       *Transport `gorm:"foreignKey:TransportID" json:"-"`

	QuantityExported   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"quantity_exported"`
	DestinationCountry string          `gorm:"size:100;not null" json:"destination_country"`
	Buyer              string          `gorm:"size:200;not null" json:"buyer"`

	// Pricing; TotalAmount is QuantityExported * UnitPrice.
	UnitPrice   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`

	Status        ExportStatus  `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null" json:"payment_status"`

	ExportDate       *Date `json:"export_date,omitempty"`
	ExpectedDelivery *Date `json:"expected_delivery,omitempty"`
	ActualDelivery   *Date `json:"actual_delivery,omitempty"`

	// ApprovedByID is set by an approval only, never by a rejection.
	ApprovedByID *uint `gorm:"index" json:"approved_by,omitempty"`
	ApprovedBy   *User `gorm:"foreignKey:ApprovedByID" json:"-"`

	Notes     string           `gorm:"type:text" json:"notes,omitempty"`
	Documents []ExportDocument `gorm:"foreignKey:ExportID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
}

// ComputeTotal sets TotalAmount from quantity and unit price.
func (e *Export) ComputeTotal() {
	e.TotalAmount = e.QuantityExported.Mul(e.UnitPrice).Round(2)
}

// DocumentType classifies an export attachment.
type DocumentType string

const (
	DocumentCertificate      DocumentType = "certificate"
	DocumentInvoice          DocumentType = "invoice"
	DocumentBillOfLading     DocumentType = "bill_of_lading"
	DocumentPackingList      DocumentType = "packing_list"
	DocumentInspectionReport DocumentType = "inspection_report"
	DocumentCustomsClearance DocumentType = "customs_clearance"
	DocumentOther            DocumentType = "other"
)

var DocumentTypes = []DocumentType{
	DocumentCertificate, DocumentInvoice, DocumentBillOfLading, DocumentPackingList,
	DocumentInspectionReport, DocumentCustomsClearance, DocumentOther,
}

func (d DocumentType) Valid() bool { return slices.Contains(DocumentTypes, d) }

// ExportDocument is a file attached to an export.
type ExportDocument struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ExportID     uint         `gorm:"index;not null" json:"export_id"`
	DocumentType DocumentType `gorm:"size:30;not null" json:"document_type"`
	FilePath     string       `gorm:"size:500;not null" json:"-"`
	FileName     string       `gorm:"size:255;not null" json:"file_name"`
	MimeType     string       `gorm:"size:150" json:"mime_type"`
	Size         int64        `json:"size"`
	UploadedByID *uint        `gorm:"index" json:"uploaded_by,omitempty"`
	UploadedBy   *User        `gorm:"foreignKey:UploadedByID" json:"-"`
	UploadedAt   time.Time    `gorm:"autoCreateTime" json:"uploaded_at"`
}
