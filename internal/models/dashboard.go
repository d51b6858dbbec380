package models

import (
	"slices"
	"time"
)

// MetricType names a dashboard metric.
type MetricType string

const (
	MetricExtractionTotal   MetricType = "extraction_total"
	MetricExtractionMonthly MetricType = "extraction_monthly"
	MetricTransportTotal    MetricType = "transport_total"
	MetricTransportPending  MetricType = "transport_pending"
	MetricExportTotal       MetricType = "export_total"
	MetricExportPending     MetricType = "export_pending"
	MetricSiteActive        MetricType = "site_active"
	MetricAlertsOpen        MetricType = "alerts_open"
	MetricRevenueMonthly    MetricType = "revenue_monthly"
	MetricUserActivity      MetricType = "user_activity"
)

// DashboardMetric is a computed value for one period. Version counts
// updates and is informational.
type DashboardMetric struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	MetricType  MetricType `gorm:"size:50;not null;uniqueIndex:idx_metric_period" json:"metric_type"`
	Value       JSON       `gorm:"not null" json:"value"`
	PeriodStart Date       `gorm:"not null;uniqueIndex:idx_metric_period" json:"period_start"`
	PeriodEnd   Date       `gorm:"not null;uniqueIndex:idx_metric_period;index" json:"period_end"`
	CreatedByID *uint      `gorm:"index" json:"created_by,omitempty"`
	Version     uint       `gorm:"not null" json:"version"`
	IsActive    bool       `gorm:"not null;index" json:"is_active"`
}

// ReportType classifies a generated report.
type ReportType string

const (
	ReportExtractionSummary ReportType = "extraction_summary"
	ReportTransportTracking ReportType = "transport_tracking"
	ReportExportAnalysis    ReportType = "export_analysis"
	ReportEnvironment       ReportType = "environment_report"
	ReportFinancial         ReportType = "financial_report"
	ReportAuditLog          ReportType = "audit_log"
	ReportCustom            ReportType = "custom"
)

// ReportFormat is the file format of a report.
type ReportFormat string

const (
	FormatPDF   ReportFormat = "pdf"
	FormatExcel ReportFormat = "excel"
	FormatCSV   ReportFormat = "csv"
	FormatJSON  ReportFormat = "json"
	FormatHTML  ReportFormat = "html"
)

var ReportFormats = []ReportFormat{FormatPDF, FormatExcel, FormatCSV, FormatJSON, FormatHTML}

func (f ReportFormat) Valid() bool { return slices.Contains(ReportFormats, f) }

// Report is a generated report and the stored file it produced.
type Report struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Title         string       `gorm:"size:200;not null" json:"title"`
	ReportType    ReportType   `gorm:"size:30;not null;index" json:"report_type"`
	Format        ReportFormat `gorm:"size:10;not null" json:"format"`
	StartDate     Date         `gorm:"not null" json:"start_date"`
	EndDate       Date         `gorm:"not null" json:"end_date"`
	GeneratedByID *uint        `gorm:"index" json:"generated_by,omitempty"`
	GeneratedBy   *User        `gorm:"foreignKey:GeneratedByID" json:"-"`
	FilePath      string       `gorm:"size:500" json:"file_path,omitempty"`
	GeneratedAt   time.Time    `gorm:"autoCreateTime;index" json:"generated_at"`
}
