package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/metrics"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

// MeasureInput is a new environment reading.
type MeasureInput struct {
	SiteID          uint                   `json:"site_id" binding:"required"`
	MeasurementType models.MeasurementType `json:"measurement_type" binding:"required"`
	Value           *float64               `json:"value" binding:"required"`
	Unit            string                 `json:"unit" binding:"max=20"`
	MeasuredAt      *time.Time             `json:"measured_at"`
	Notes           string                 `json:"notes"`
}

// ThresholdInput holds the limits of one measurement type.
type ThresholdInput struct {
	MeasurementType models.MeasurementType `json:"measurement_type" binding:"required"`
	Warning         float64                `json:"warning_threshold"`
	Danger          float64                `json:"danger_threshold"`
	Critical        float64                `json:"critical_threshold"`
	Unit            string                 `json:"unit" binding:"max=20"`
}

func ThresholdInputFrom(t *models.EnvironmentThreshold) ThresholdInput {
	return ThresholdInput{
		MeasurementType: t.MeasurementType,
		Warning:         t.Warning,
		Danger:          t.Danger,
		Critical:        t.Critical,
		Unit:            t.Unit,
	}
}

func (in *ThresholdInput) check() error {
	if err := validateInput(in); err != nil {
		return err
	}
	if !in.MeasurementType.Valid() {
		return validationError(map[string]string{"measurement_type": "invalid_choice"}, "unknown measurement type %q", in.MeasurementType)
	}
	t := models.EnvironmentThreshold{Warning: in.Warning, Danger: in.Danger, Critical: in.Critical}
	if !t.Ordered() {
		return validationError(map[string]string{"danger_threshold": "out_of_order"},
			"thresholds must satisfy warning <= danger <= critical")
	}
	return nil
}

// alertPriority maps a breach severity to the notification priority.
var alertPriority = map[models.Severity]models.Priority{
	models.SeverityWarning:  models.PriorityMedium,
	models.SeverityDanger:   models.PriorityHigh,
	models.SeverityCritical: models.PriorityCritical,
}

// EnvironmentService records measures and raises alerts when a measure
// exceeds its type's thresholds.
type EnvironmentService struct {
	db            *gorm.DB
	notifications *NotificationService
	log           logger.Logger
	now           func() time.Time
}

func NewEnvironmentService(db *gorm.DB, notifications *NotificationService, log logger.Logger) *EnvironmentService {
	return &EnvironmentService{db: db, notifications: notifications, log: log, now: time.Now}
}

// RecordMeasure persists a measure and evaluates it in the same
// transaction. The returned alert is nil when no threshold was exceeded.
func (s *EnvironmentService) RecordMeasure(ctx context.Context, in MeasureInput, actor *models.User) (*models.EnvironmentMeasure, *models.EnvironmentAlert, error) {
	if err := validateInput(in); err != nil {
		return nil, nil, err
	}
	if !in.MeasurementType.Valid() {
		return nil, nil, validationError(map[string]string{"measurement_type": "invalid_choice"}, "unknown measurement type %q", in.MeasurementType)
	}
	m := models.EnvironmentMeasure{
		SiteID:          in.SiteID,
		MeasurementType: in.MeasurementType,
		Value:           *in.Value,
		Unit:            in.Unit,
		MeasuredAt:      s.now(),
		Notes:           in.Notes,
	}
	if in.MeasuredAt != nil {
		m.MeasuredAt = *in.MeasuredAt
	}
	if actor != nil {
		m.MeasuredByID = &actor.ID
	}

	var (
		alert  *models.EnvironmentAlert
		emails []uint
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &models.Site{}, in.SiteID)
		if err != nil {
			return err
		}
		if !ok {
			return validationError(map[string]string{"site_id": "not_found"}, "site does not exist")
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		alert, emails, err = s.Evaluate(tx, &m)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.notifications.Deliver(ctx, emails)
	if alert != nil {
		metrics.AlertsRaised.WithLabelValues(string(alert.Severity)).Inc()
		s.log.Info("Environment alert raised", "alert_id", alert.ID, "site_id", alert.SiteID, "severity", alert.Severity)
	}
	return &m, alert, nil
}

// Evaluate compares m against the threshold of its type inside tx. A
// missing threshold raises nothing. A breach creates one active alert and
// notifies the environment officers and admins; the ids of the queued
// emails are returned for delivery after commit.
func (s *EnvironmentService) Evaluate(tx *gorm.DB, m *models.EnvironmentMeasure) (*models.EnvironmentAlert, []uint, error) {
	var th models.EnvironmentThreshold
	err := tx.Where("measurement_type = ?", m.MeasurementType).First(&th).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load threshold %s: %w", m.MeasurementType, err)
	}
	severity, limit, breached := th.Classify(m.Value)
	if !breached {
		return nil, nil, nil
	}
	alert := models.EnvironmentAlert{
		SiteID:         m.SiteID,
		MeasureID:      m.ID,
		Title:          "Alert " + m.MeasurementType.Label(),
		Description:    string(severity) + " threshold exceeded",
		ThresholdValue: limit,
		ActualValue:    m.Value,
		Severity:       severity,
		Status:         models.AlertActive,
	}
	if err := tx.Create(&alert).Error; err != nil {
		return nil, nil, err
	}
	emails, err := s.notifications.NotifyRoles(tx, Message{
		Title:     alert.Title,
		Body:      fmt.Sprintf("%s at site %d: measured %g, limit %g.", alert.Description, m.SiteID, m.Value, limit),
		Type:      models.NotifyAlert,
		Priority:  alertPriority[severity],
		RelatedID: &alert.ID,
		Email:     true,
	}, roles.Environnement, roles.Admin)
	if err != nil {
		return nil, nil, err
	}
	return &alert, emails, nil
}

// MeasureFilter narrows ListMeasures.
type MeasureFilter struct {
	SiteID          uint
	MeasurementType models.MeasurementType
}

func (s *EnvironmentService) ListMeasures(ctx context.Context, f MeasureFilter, page Page) (List[models.EnvironmentMeasure], error) {
	q := s.db.WithContext(ctx).Model(&models.EnvironmentMeasure{})
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.MeasurementType != "" {
		q = q.Where("measurement_type = ?", f.MeasurementType)
	}
	return paginate[models.EnvironmentMeasure](q, page, "measured_at DESC, id DESC")
}

func (s *EnvironmentService) GetMeasure(ctx context.Context, id uint) (*models.EnvironmentMeasure, error) {
	var m models.EnvironmentMeasure
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFoundOr(err, "measure")
	}
	return &m, nil
}

// CreateThreshold defines the limits of a measurement type.
func (s *EnvironmentService) CreateThreshold(ctx context.Context, in ThresholdInput) (*models.EnvironmentThreshold, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	th := models.EnvironmentThreshold{
		MeasurementType: in.MeasurementType,
		Warning:         in.Warning,
		Danger:          in.Danger,
		Critical:        in.Critical,
		Unit:            in.Unit,
	}
	if err := s.db.WithContext(ctx).Create(&th).Error; err != nil {
		return nil, duplicateOr(err, "measurement_type", "a threshold already exists for this measurement type")
	}
	return &th, nil
}

func (s *EnvironmentService) GetThreshold(ctx context.Context, id uint) (*models.EnvironmentThreshold, error) {
	var th models.EnvironmentThreshold
	if err := s.db.WithContext(ctx).First(&th, id).Error; err != nil {
		return nil, notFoundOr(err, "threshold")
	}
	return &th, nil
}

func (s *EnvironmentService) ListThresholds(ctx context.Context, page Page) (List[models.EnvironmentThreshold], error) {
	return paginate[models.EnvironmentThreshold](s.db.WithContext(ctx).Model(&models.EnvironmentThreshold{}), page, "measurement_type")
}

func (s *EnvironmentService) UpdateThreshold(ctx context.Context, id uint, in ThresholdInput) (*models.EnvironmentThreshold, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	if _, err := s.GetThreshold(ctx, id); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Model(&models.EnvironmentThreshold{ID: id}).Updates(map[string]any{
		"measurement_type": in.MeasurementType,
		"warning":          in.Warning,
		"danger":           in.Danger,
		"critical":         in.Critical,
		"unit":             in.Unit,
	}).Error
	if err != nil {
		return nil, duplicateOr(err, "measurement_type", "a threshold already exists for this measurement type")
	}
	return s.GetThreshold(ctx, id)
}

func (s *EnvironmentService) DeleteThreshold(ctx context.Context, id uint) error {
	th, err := s.GetThreshold(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(th).Error
}

// AlertFilter narrows ListAlerts. An empty Status lists active alerts;
// "all" lists every alert.
type AlertFilter struct {
	Status string
	SiteID uint
}

func (s *EnvironmentService) ListAlerts(ctx context.Context, f AlertFilter, page Page) (List[models.EnvironmentAlert], error) {
	q := s.db.WithContext(ctx).Model(&models.EnvironmentAlert{})
	switch status := strings.ToLower(strings.TrimSpace(f.Status)); status {
	case "all":
	case "":
		q = q.Where("status = ?", models.AlertActive)
	default:
		if !models.AlertStatus(status).Valid() {
			return List[models.EnvironmentAlert]{}, validationError(map[string]string{"status": "invalid_choice"}, "unknown alert status %q", status)
		}
		q = q.Where("status = ?", status)
	}
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	return paginate[models.EnvironmentAlert](q, page, "triggered_at DESC, id DESC")
}

func (s *EnvironmentService) GetAlert(ctx context.Context, id uint) (*models.EnvironmentAlert, error) {
	var a models.EnvironmentAlert
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFoundOr(err, "alert")
	}
	return &a, nil
}

// Resolve closes an active or acknowledged alert.
func (s *EnvironmentService) Resolve(ctx context.Context, id uint) (*models.EnvironmentAlert, error) {
	a, err := s.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == models.AlertResolved {
		return nil, conflict("alert already resolved")
	}
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.EnvironmentAlert{}).
		Where("id = ? AND status = ?", id, a.Status).
		Updates(map[string]any{"status": models.AlertResolved, "resolved_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflict("alert already resolved")
	}
	metrics.Transition("alert", string(models.AlertResolved))
	return s.GetAlert(ctx, id)
}

// Acknowledge marks an active alert as being handled by actor.
func (s *EnvironmentService) Acknowledge(ctx context.Context, id uint, actor *models.User) (*models.EnvironmentAlert, error) {
	if _, err := s.GetAlert(ctx, id); err != nil {
		return nil, err
	}
	updates := map[string]any{"status": models.AlertAcknowledged}
	if actor != nil {
		updates["assigned_to_id"] = actor.ID
	}
	res := s.db.WithContext(ctx).Model(&models.EnvironmentAlert{}).
		Where("id = ? AND status = ?", id, models.AlertActive).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, conflict("only active alerts can be acknowledged")
	}
	metrics.Transition("alert", string(models.AlertAcknowledged))
	return s.GetAlert(ctx, id)
}
