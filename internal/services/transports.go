package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/metrics"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/validation"
)

// TransportInput is the writable part of a transport. Status and QR code
// are managed by the state machine.
type TransportInput struct {
	ExtractionID        uint            `json:"extraction_id" binding:"required"`
	TruckID             *uint           `json:"truck_id"`
	DepartureLocation   string          `json:"departure_location" binding:"max=200"`
	Destination         string          `json:"destination" binding:"max=200"`
	QuantityTransported decimal.Decimal `json:"quantity_transported"`
	DriverID            *uint           `json:"driver_id"`
	GPSTracking         bool            `json:"gps_tracking"`
	Notes               string          `json:"notes"`
}

func TransportInputFrom(t *models.Transport) TransportInput {
	return TransportInput{
		ExtractionID:        t.ExtractionID,
		TruckID:             t.TruckID,
		DepartureLocation:   t.DepartureLocation,
		Destination:         t.Destination,
		QuantityTransported: t.QuantityTransported,
		DriverID:            t.DriverID,
		GPSTracking:         t.GPSTracking,
		Notes:               t.Notes,
	}
}

func (in *TransportInput) check() error {
	if err := validateInput(in); err != nil {
		return err
	}
	if in.QuantityTransported.IsNegative() {
		return validationError(validation.Violations{"quantity_transported": "too_small"}, "validation failed")
	}
	return nil
}

// LocationInput is one GPS breadcrumb.
type LocationInput struct {
	Latitude  float64 `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" binding:"gte=-180,lte=180"`
}

// TransportService drives the transport state machine:
// planned -> in_transit -> arrived, and planned -> cancelled.
type TransportService struct {
	db  *gorm.DB
	log logger.Logger
	now func() time.Time
}

func NewTransportService(db *gorm.DB, log logger.Logger) *TransportService {
	return &TransportService{db: db, log: log, now: time.Now}
}

func (s *TransportService) checkRefs(tx *gorm.DB, in TransportInput) error {
	ok, err := exists(tx, &models.Extraction{}, in.ExtractionID)
	if err != nil {
		return err
	}
	if !ok {
		return validationError(map[string]string{"extraction_id": "not_found"}, "extraction does not exist")
	}
	if in.TruckID != nil {
		ok, err := exists(tx, &models.Truck{}, *in.TruckID)
		if err != nil {
			return err
		}
		if !ok {
			return validationError(map[string]string{"truck_id": "not_found"}, "truck does not exist")
		}
	}
	return checkAssignee(tx, "driver_id", in.DriverID, roles.Chauffeur)
}

// Create plans a transport and gives it its QR code.
func (s *TransportService) Create(ctx context.Context, in TransportInput) (*models.Transport, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	t := models.Transport{
		QRCode:              uuid.NewString(),
		ExtractionID:        in.ExtractionID,
		TruckID:             in.TruckID,
		DepartureLocation:   in.DepartureLocation,
		Destination:         in.Destination,
		QuantityTransported: in.QuantityTransported,
		Status:              models.TransportPlanned,
		DriverID:            in.DriverID,
		GPSTracking:         in.GPSTracking,
		Notes:               in.Notes,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		return nil, err
	}
	metrics.Transition("transport", string(t.Status))
	return &t, nil
}

func (s *TransportService) Get(ctx context.Context, id uint) (*models.Transport, error) {
	var t models.Transport
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFoundOr(err, "transport")
	}
	return &t, nil
}

// GetByQR looks a transport up by its QR code.
func (s *TransportService) GetByQR(ctx context.Context, qr string) (*models.Transport, error) {
	qr = strings.TrimSpace(qr)
	if qr == "" {
		return nil, notFound("transport")
	}
	var t models.Transport
	if err := s.db.WithContext(ctx).Where("qr_code = ?", qr).First(&t).Error; err != nil {
		return nil, notFoundOr(err, "transport")
	}
	return &t, nil
}

// TransportFilter narrows List.
type TransportFilter struct {
	Status   models.TransportStatus
	DriverID uint
}

func (s *TransportService) List(ctx context.Context, f TransportFilter, page Page) (List[models.Transport], error) {
	q := s.db.WithContext(ctx).Model(&models.Transport{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.DriverID != 0 {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	return paginate[models.Transport](q, page, "id DESC")
}

// Update edits the descriptive fields of a transport; status, dates and QR
// code are left untouched.
func (s *TransportService) Update(ctx context.Context, id uint, in TransportInput) (*models.Transport, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}
		return tx.Model(&models.Transport{ID: id}).Updates(map[string]any{
			"extraction_id":        in.ExtractionID,
			"truck_id":             in.TruckID,
			"departure_location":   in.DepartureLocation,
			"destination":          in.Destination,
			"quantity_transported": in.QuantityTransported,
			"driver_id":            in.DriverID,
			"gps_tracking":         in.GPSTracking,
			"notes":                in.Notes,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a transport no export refers to.
func (s *TransportService) Delete(ctx context.Context, id uint) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Export{}).Where("transport_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("transport is referenced by %d exports", n)
		}
		if err := tx.Where("transport_id = ?", id).Delete(&models.TransportLocation{}).Error; err != nil {
			return err
		}
		return tx.Delete(t).Error
	})
}

// transition moves t from one status to the next with a conditional update.
// A concurrent writer that got there first makes it fail with a conflict.
func (s *TransportService) transition(ctx context.Context, t *models.Transport, from, to models.TransportStatus, updates map[string]any, msg string) error {
	updates["status"] = to
	res := s.db.WithContext(ctx).Model(&models.Transport{}).
		Where("id = ? AND status = ?", t.ID, from).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("transport %d %s -> %s: %w", t.ID, from, to, res.Error)
	}
	if res.RowsAffected == 0 {
		return conflict("%s", msg)
	}
	metrics.Transition("transport", string(to))
	return nil
}

// RecordDeparture moves the transport scanned by qr from planned to
// in_transit.
func (s *TransportService) RecordDeparture(ctx context.Context, qr string) (*models.Transport, error) {
	t, err := s.GetByQR(ctx, qr)
	if err != nil {
		return nil, err
	}
	const msg = "departure cannot be recorded"
	if !t.CanDepart() {
		return nil, conflict(msg)
	}
	now := s.now()
	if err := s.transition(ctx, t, models.TransportPlanned, models.TransportInTransit, map[string]any{"departure_date": now}, msg); err != nil {
		return nil, err
	}
	return s.Get(ctx, t.ID)
}

// RecordArrival moves the transport scanned by qr from in_transit to
// arrived.
func (s *TransportService) RecordArrival(ctx context.Context, qr string) (*models.Transport, error) {
	t, err := s.GetByQR(ctx, qr)
	if err != nil {
		return nil, err
	}
	const msg = "transport is not in transit"
	if !t.CanArrive() {
		return nil, conflict(msg)
	}
	now := s.now()
	if err := s.transition(ctx, t, models.TransportInTransit, models.TransportArrived, map[string]any{"arrival_date": now}, msg); err != nil {
		return nil, err
	}
	return s.Get(ctx, t.ID)
}

// Cancel abandons a planned transport.
func (s *TransportService) Cancel(ctx context.Context, id uint) (*models.Transport, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	const msg = "only planned transports can be cancelled"
	if !t.CanCancel() {
		return nil, conflict(msg)
	}
	if err := s.transition(ctx, t, models.TransportPlanned, models.TransportCancelled, map[string]any{}, msg); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// AddLocation appends a GPS breadcrumb to transport id.
func (s *TransportService) AddLocation(ctx context.Context, id uint, in LocationInput) (*models.TransportLocation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	loc := models.TransportLocation{TransportID: id, Latitude: in.Latitude, Longitude: in.Longitude}
	if err := s.db.WithContext(ctx).Create(&loc).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

// Locations returns the breadcrumbs of transport id, oldest first.
func (s *TransportService) Locations(ctx context.Context, id uint) ([]models.TransportLocation, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var locs []models.TransportLocation
	if err := s.db.WithContext(ctx).Where("transport_id = ?", id).Order("recorded_at, id").Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}
