package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

// Summary is the headline figures of the dashboard.
type Summary struct {
	TotalSites            int64           `json:"total_sites"`
	TotalExtractions      int64           `json:"total_extractions"`
	TotalExtractionVolume decimal.Decimal `json:"total_extraction_volume"`
	ActiveTransports      int64           `json:"active_transports"`
	TotalExports          int64           `json:"total_exports"`
	ExportRevenue         decimal.Decimal `json:"export_revenue"`
}

// DashboardService computes dashboard figures and stores period metrics.
type DashboardService struct {
	db  *gorm.DB
	log logger.Logger
}

func NewDashboardService(db *gorm.DB, log logger.Logger) *DashboardService {
	return &DashboardService{db: db, log: log}
}

func count(q *gorm.DB) (int64, error) {
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func sumColumn(q *gorm.DB, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	if err := q.Pluck(column, &values).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, values...), nil
}

// Summary counts active sites, extractions of any status with their volume,
// in-transit transports, exports and their total amount.
func (s *DashboardService) Summary(ctx context.Context) (*Summary, error) {
	db := s.db.WithContext(ctx)
	var (
		sum Summary
		err error
	)
	if sum.TotalSites, err = count(db.Model(&models.Site{}).Where("status = ?", models.SiteActive)); err != nil {
		return nil, err
	}
	if sum.TotalExtractions, err = count(db.Model(&models.Extraction{})); err != nil {
		return nil, err
	}
	if sum.TotalExtractionVolume, err = sumColumn(db.Model(&models.Extraction{}), "quantity_tonnes"); err != nil {
		return nil, err
	}
	if sum.ActiveTransports, err = count(db.Model(&models.Transport{}).Where("status = ?", models.TransportInTransit)); err != nil {
		return nil, err
	}
	if sum.TotalExports, err = count(db.Model(&models.Export{})); err != nil {
		return nil, err
	}
	if sum.ExportRevenue, err = sumColumn(db.Model(&models.Export{}), "total_amount"); err != nil {
		return nil, err
	}
	return &sum, nil
}

// MetricFilter narrows ListMetrics.
type MetricFilter struct {
	MetricType models.MetricType
	ActiveOnly bool
}

func (s *DashboardService) ListMetrics(ctx context.Context, f MetricFilter, page Page) (List[models.DashboardMetric], error) {
	q := s.db.WithContext(ctx).Model(&models.DashboardMetric{})
	if f.MetricType != "" {
		q = q.Where("metric_type = ?", f.MetricType)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	return paginate[models.DashboardMetric](q, page, "period_end DESC, metric_type")
}

func (s *DashboardService) GetMetric(ctx context.Context, id uint) (*models.DashboardMetric, error) {
	var m models.DashboardMetric
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFoundOr(err, "metric")
	}
	return &m, nil
}

// PeriodInput bounds a metrics refresh, both days included.
type PeriodInput struct {
	PeriodStart models.Date `json:"period_start"`
	PeriodEnd   models.Date `json:"period_end"`
}

// RefreshMetrics computes every metric for the period and upserts them.
// An existing row for the same type and period gets its value replaced and
// its version incremented.
func (s *DashboardService) RefreshMetrics(ctx context.Context, in PeriodInput, actor *models.User) ([]models.DashboardMetric, error) {
	v := map[string]string{}
	if in.PeriodStart.IsZero() {
		v["period_start"] = "required"
	}
	if in.PeriodEnd.IsZero() {
		v["period_end"] = "required"
	}
	if len(v) > 0 {
		return nil, validationError(v, "validation failed")
	}
	if in.PeriodStart.After(in.PeriodEnd.Time) {
		return nil, validationError(map[string]string{"period_end": "before_start"}, "period_start must not be after period_end")
	}

	var out []models.DashboardMetric
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		values, err := s.compute(tx, in.PeriodStart, in.PeriodEnd)
		if err != nil {
			return err
		}
		for _, mt := range metricOrder {
			m, err := s.upsert(tx, mt, values[mt], in, actor)
			if err != nil {
				return fmt.Errorf("store metric %s: %w", mt, err)
			}
			out = append(out, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var metricOrder = []models.MetricType{
	models.MetricExtractionTotal, models.MetricExtractionMonthly,
	models.MetricTransportTotal, models.MetricTransportPending,
	models.MetricExportTotal, models.MetricExportPending,
	models.MetricSiteActive, models.MetricAlertsOpen,
	models.MetricRevenueMonthly, models.MetricUserActivity,
}

func (s *DashboardService) upsert(tx *gorm.DB, mt models.MetricType, value any, in PeriodInput, actor *models.User) (*models.DashboardMetric, error) {
	raw, err := models.NewJSON(value)
	if err != nil {
		return nil, err
	}
	var m models.DashboardMetric
	err = tx.Where("metric_type = ? AND period_start = ? AND period_end = ?", mt, in.PeriodStart, in.PeriodEnd).First(&m).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		m = models.DashboardMetric{
			MetricType:  mt,
			Value:       raw,
			PeriodStart: in.PeriodStart,
			PeriodEnd:   in.PeriodEnd,
			Version:     1,
			IsActive:    true,
		}
		if actor != nil {
			m.CreatedByID = &actor.ID
		}
		if err := tx.Create(&m).Error; err != nil {
			return nil, err
		}
		return &m, nil
	case err != nil:
		return nil, err
	}
	err = tx.Model(&m).Updates(map[string]any{
		"value":     raw,
		"version":   gorm.Expr("version + ?", 1),
		"is_active": true,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := tx.First(&m, m.ID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// compute evaluates the metrics of [start, end].
func (s *DashboardService) compute(tx *gorm.DB, start, end models.Date) (map[models.MetricType]any, error) {
	from, until := start.Time, end.AddDate(0, 0, 1)
	values := map[models.MetricType]any{}

	var extractions []models.Extraction
	if err := tx.Where("extraction_date BETWEEN ? AND ?", start, end).Find(&extractions).Error; err != nil {
		return nil, err
	}
	total := decimal.Zero
	monthly := map[string]decimal.Decimal{}
	for _, e := range extractions {
		total = total.Add(e.QuantityTonnes)
		month := e.ExtractionDate.Format("2006-01")
		monthly[month] = monthly[month].Add(e.QuantityTonnes)
	}
	values[models.MetricExtractionTotal] = map[string]any{"count": len(extractions), "quantity": total}
	values[models.MetricExtractionMonthly] = monthly

	transports, err := count(tx.Model(&models.Transport{}).Where("created_at >= ? AND created_at < ?", from, until))
	if err != nil {
		return nil, err
	}
	values[models.MetricTransportTotal] = transports
	pending, err := count(tx.Model(&models.Transport{}).Where("status = ?", models.TransportPlanned))
	if err != nil {
		return nil, err
	}
	values[models.MetricTransportPending] = pending

	var exports []models.Export
	if err := tx.Where("created_at >= ? AND created_at < ?", from, until).Find(&exports).Error; err != nil {
		return nil, err
	}
	revenue := map[string]decimal.Decimal{}
	for _, e := range exports {
		month := e.CreatedAt.UTC().Format("2006-01")
		revenue[month] = revenue[month].Add(e.TotalAmount)
	}
	values[models.MetricExportTotal] = len(exports)
	values[models.MetricRevenueMonthly] = revenue
	exportsPending, err := count(tx.Model(&models.Export{}).Where("status = ?", models.ExportPending))
	if err != nil {
		return nil, err
	}
	values[models.MetricExportPending] = exportsPending

	sites, err := count(tx.Model(&models.Site{}).Where("status = ?", models.SiteActive))
	if err != nil {
		return nil, err
	}
	values[models.MetricSiteActive] = sites
	alerts, err := count(tx.Model(&models.EnvironmentAlert{}).Where("status <> ?", models.AlertResolved))
	if err != nil {
		return nil, err
	}
	values[models.MetricAlertsOpen] = alerts

	var activity []struct {
		Action models.ActivityAction
		N      int64
	}
	err = tx.Model(&models.ActivityLog{}).Select("action, COUNT(*) AS n").
		Where("timestamp >= ? AND timestamp < ?", from, until).
		Group("action").Scan(&activity).Error
	if err != nil {
		return nil, err
	}
	byAction := map[models.ActivityAction]int64{}
	for _, a := range activity {
		byAction[a.Action] = a.N
	}
	values[models.MetricUserActivity] = byAction
	return values, nil
}

// Landing gathers the figures shown on a landing dashboard for user.
func (s *DashboardService) Landing(ctx context.Context, l roles.Landing, user *models.User) (map[string]any, error) {
	db := s.db.WithContext(ctx)
	data := map[string]any{"landing": l.Slug()}
	switch l {
	case roles.LandingAdmin:
		counts := map[string]*gorm.DB{
			"total_users":       db.Model(&models.User{}),
			"total_extractions": db.Model(&models.Extraction{}),
			"total_transports":  db.Model(&models.Transport{}),
			"total_sites":       db.Model(&models.Site{}),
		}
		for k, q := range counts {
			n, err := count(q)
			if err != nil {
				return nil, err
			}
			data[k] = n
		}
		var recent []models.User
		if err := db.Order("created_at DESC, id DESC").Limit(5).Find(&recent).Error; err != nil {
			return nil, err
		}
		data["recent_users"] = recent

	case roles.LandingAgent:
		var mine []models.Extraction
		if err := db.Where("operator_id = ?", user.ID).Order("extraction_date DESC, id DESC").Limit(10).Find(&mine).Error; err != nil {
			return nil, err
		}
		data["my_extractions"] = mine
		if len(mine) > 0 {
			if err := s.siteData(db, mine[0].SiteID, data); err != nil {
				return nil, err
			}
		}

	case roles.LandingSiteManager:
		var site models.Site
		err := db.Where("manager_id = ?", user.ID).Order("id").First(&site).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := s.siteData(db, site.ID, data); err != nil {
			return nil, err
		}
		volume, err := sumColumn(db.Model(&models.Extraction{}).Where("site_id = ?", site.ID), "quantity_tonnes")
		if err != nil {
			return nil, err
		}
		data["total_extraction_volume"] = volume
		var transports []models.Transport
		err = db.Joins("JOIN extractions ON extractions.id = transports.extraction_id").
			Where("extractions.site_id = ?", site.ID).
			Order("transports.id DESC").Limit(5).Find(&transports).Error
		if err != nil {
			return nil, err
		}
		data["recent_transports"] = transports

	case roles.LandingDriver:
		var transports []models.Transport
		err := db.Where("driver_id = ? AND status IN ?", user.ID, []models.TransportStatus{models.TransportPlanned, models.TransportInTransit}).
			Order("id").Find(&transports).Error
		if err != nil {
			return nil, err
		}
		data["my_transports"] = transports

	case roles.LandingCustoms:
		var pending []models.Export
		if err := db.Where("status = ?", models.ExportPending).Order("id").Limit(20).Find(&pending).Error; err != nil {
			return nil, err
		}
		data["pending_exports"] = pending

	case roles.LandingEnvironment:
		var alerts []models.EnvironmentAlert
		if err := db.Where("status <> ?", models.AlertResolved).Order("triggered_at DESC, id DESC").Limit(10).Find(&alerts).Error; err != nil {
			return nil, err
		}
		data["open_alerts"] = alerts

	default:
		sum, err := s.Summary(ctx)
		if err != nil {
			return nil, err
		}
		data["summary"] = sum
	}
	return data, nil
}

func (s *DashboardService) siteData(db *gorm.DB, siteID uint, data map[string]any) error {
	var site models.Site
	if err := db.Preload("Stock").First(&site, siteID).Error; err != nil {
		return notFoundOr(err, "site")
	}
	data["site"] = site
	if site.Stock != nil {
		data["site_stock"] = site.Stock.QuantityInStock
	}
	return nil
}
