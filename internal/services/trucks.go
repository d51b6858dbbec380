package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/validation"
)

var truckStatuses = []models.TruckStatus{models.TruckActive, models.TruckMaintenance, models.TruckRetired}

// TruckInput is the writable part of a truck.
type TruckInput struct {
	RegistrationNumber string             `json:"registration_number" binding:"required,max=50"`
	TruckType          string             `json:"truck_type" binding:"max=100"`
	CapacityTonnes     decimal.Decimal    `json:"capacity_tonnes"`
	Owner              string             `json:"owner" binding:"max=200"`
	DriverID           *uint              `json:"driver_id"`
	Status             models.TruckStatus `json:"status"`
	InspectionDate     *models.Date       `json:"inspection_date"`
}

func TruckInputFrom(t *models.Truck) TruckInput {
	return TruckInput{
		RegistrationNumber: t.RegistrationNumber,
		TruckType:          t.TruckType,
		CapacityTonnes:     t.CapacityTonnes,
		Owner:              t.Owner,
		DriverID:           t.DriverID,
		Status:             t.Status,
		InspectionDate:     t.InspectionDate,
	}
}

func (in *TruckInput) check() error {
	in.RegistrationNumber = strings.ToUpper(strings.TrimSpace(in.RegistrationNumber))
	if in.Status == "" {
		in.Status = models.TruckActive
	}
	if err := validateInput(in); err != nil {
		return err
	}
	v := validation.Violations{}
	if in.CapacityTonnes.IsNegative() {
		v.Add("capacity_tonnes", "too_small")
	}
	validation.OneOf("status", in.Status, truckStatuses, v)
	if !v.Empty() {
		return validationError(v, "validation failed")
	}
	return nil
}

// TruckService manages the fleet.
type TruckService struct {
	db *gorm.DB
}

func NewTruckService(db *gorm.DB) *TruckService {
	return &TruckService{db: db}
}

func (s *TruckService) Create(ctx context.Context, in TruckInput) (*models.Truck, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	t := models.Truck{
		RegistrationNumber: in.RegistrationNumber,
		TruckType:          in.TruckType,
		CapacityTonnes:     in.CapacityTonnes,
		Owner:              in.Owner,
		DriverID:           in.DriverID,
		Status:             in.Status,
		InspectionDate:     in.InspectionDate,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAssignee(tx, "driver_id", in.DriverID, roles.Chauffeur); err != nil {
			return err
		}
		return duplicateOr(tx.Create(&t).Error, "registration_number", "registration number already in use")
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TruckService) Get(ctx context.Context, id uint) (*models.Truck, error) {
	var t models.Truck
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, notFoundOr(err, "truck")
	}
	return &t, nil
}

func (s *TruckService) List(ctx context.Context, status models.TruckStatus, page Page) (List[models.Truck], error) {
	q := s.db.WithContext(ctx).Model(&models.Truck{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return paginate[models.Truck](q, page, "registration_number")
}

func (s *TruckService) Update(ctx context.Context, id uint, in TruckInput) (*models.Truck, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAssignee(tx, "driver_id", in.DriverID, roles.Chauffeur); err != nil {
			return err
		}
		err := tx.Model(&models.Truck{ID: id}).Updates(map[string]any{
			"registration_number": in.RegistrationNumber,
			"truck_type":          in.TruckType,
			"capacity_tonnes":     in.CapacityTonnes,
			"owner":               in.Owner,
			"driver_id":           in.DriverID,
			"status":              in.Status,
			"inspection_date":     in.InspectionDate,
		}).Error
		return duplicateOr(err, "registration_number", "registration number already in use")
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a truck; transports keep their history with no truck.
func (s *TruckService) Delete(ctx context.Context, id uint) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transport{}).Where("truck_id = ?", id).Update("truck_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(t).Error
	})
}
