package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/validation"
)

// SiteInput is the writable part of a site.
type SiteInput struct {
	Name             string             `json:"name" binding:"required,max=200"`
	MineralType      models.MineralType `json:"mineral_type" binding:"required"`
	Latitude         float64            `json:"latitude" binding:"gte=-90,lte=90"`
	Longitude        float64            `json:"longitude" binding:"gte=-180,lte=180"`
	Address          string             `json:"address"`
	Region           string             `json:"region" binding:"max=100"`
	ManagerID        *uint              `json:"manager_id"`
	Status           models.SiteStatus  `json:"status"`
	Capacity         decimal.Decimal    `json:"capacity"`
	OperationalSince *models.Date       `json:"operational_since"`
	LicenseNumber    string             `json:"license_number" binding:"required,max=100"`
}

// SiteInputFrom returns the input reproducing s, the base of partial updates.
func SiteInputFrom(s *models.Site) SiteInput {
	return SiteInput{
		Name:             s.Name,
		MineralType:      s.MineralType,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		Address:          s.Address,
		Region:           s.Region,
		ManagerID:        s.ManagerID,
		Status:           s.Status,
		Capacity:         s.Capacity,
		OperationalSince: s.OperationalSince,
		LicenseNumber:    s.LicenseNumber,
	}
}

func (in *SiteInput) check() error {
	in.Name = strings.TrimSpace(in.Name)
	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	if in.Status == "" {
		in.Status = models.SiteActive
	}
	if err := validateInput(in); err != nil {
		return err
	}
	v := validation.Violations{}
	validation.OneOf("mineral_type", in.MineralType, models.MineralTypes, v)
	validation.OneOf("status", in.Status, []models.SiteStatus{models.SiteActive, models.SiteSuspended, models.SiteClosed}, v)
	if in.Capacity.IsNegative() {
		v.Add("capacity", "too_small")
	}
	if !v.Empty() {
		return validationError(v, "validation failed")
	}
	return nil
}

func (in SiteInput) apply(s *models.Site) {
	s.Name = in.Name
	s.MineralType = in.MineralType
	s.Latitude, s.Longitude = in.Latitude, in.Longitude
	s.Address, s.Region = in.Address, in.Region
	s.ManagerID = in.ManagerID
	s.Status = in.Status
	s.Capacity = in.Capacity
	s.OperationalSince = in.OperationalSince
	s.LicenseNumber = in.LicenseNumber
}

// SiteStatistics summarizes the extractions of a site.
type SiteStatistics struct {
	SiteID           uint            `json:"site_id"`
	SiteName         string          `json:"site_name"`
	TotalExtractions int64           `json:"total_extractions"`
	TotalQuantity    decimal.Decimal `json:"total_quantity"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
}

// SiteService manages the site registry.
type SiteService struct {
	db       *gorm.DB
	activity *ActivityService
	log      logger.Logger
}

func NewSiteService(db *gorm.DB, activity *ActivityService, log logger.Logger) *SiteService {
	return &SiteService{db: db, activity: activity, log: log}
}

// Create registers a site together with its empty stock.
func (s *SiteService) Create(ctx context.Context, in SiteInput, actor *models.User) (*models.Site, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	var site models.Site
	in.apply(&site)
	site.Stock = &models.Stock{QuantityInStock: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAssignee(tx, "manager_id", in.ManagerID, roles.ResponsableSite); err != nil {
			return err
		}
		if err := tx.Create(&site).Error; err != nil {
			return duplicateOr(err, "license_number", "license number already registered")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityCreate, "created site "+site.Name, "")
	return &site, nil
}

// Get loads a site with its stock.
func (s *SiteService) Get(ctx context.Context, id uint) (*models.Site, error) {
	var site models.Site
	if err := s.db.WithContext(ctx).Preload("Stock").First(&site, id).Error; err != nil {
		return nil, notFoundOr(err, "site")
	}
	return &site, nil
}

// SiteFilter narrows List.
type SiteFilter struct {
	Status      models.SiteStatus
	MineralType models.MineralType
	Region      string
	Search      string
}

func (s *SiteService) List(ctx context.Context, f SiteFilter, page Page) (List[models.Site], error) {
	q := s.db.WithContext(ctx).Model(&models.Site{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MineralType != "" {
		q = q.Where("mineral_type = ?", f.MineralType)
	}
	if f.Region != "" {
		q = q.Where("region = ?", f.Region)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(region) LIKE ?", like, like)
	}
	return paginate[models.Site](q, page, "name, id")
}

func (s *SiteService) Update(ctx context.Context, id uint, in SiteInput, actor *models.User) (*models.Site, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	site, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(site)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkAssignee(tx, "manager_id", in.ManagerID, roles.ResponsableSite); err != nil {
			return err
		}
		err := tx.Model(&models.Site{ID: site.ID}).Updates(map[string]any{
			"name":              site.Name,
			"mineral_type":      site.MineralType,
			"latitude":          site.Latitude,
			"longitude":         site.Longitude,
			"address":           site.Address,
			"region":            site.Region,
			"manager_id":        site.ManagerID,
			"status":            site.Status,
			"capacity":          site.Capacity,
			"operational_since": site.OperationalSince,
			"license_number":    site.LicenseNumber,
		}).Error
		return duplicateOr(err, "license_number", "license number already registered")
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityUpdate, "updated site "+site.Name, "")
	return site, nil
}

// Delete removes a site that has no recorded extraction.
func (s *SiteService) Delete(ctx context.Context, id uint, actor *models.User) error {
	site, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Extraction{}).Where("site_id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return conflict("site has %d extractions", n)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", id).Delete(&models.Stock{}).Error; err != nil {
			return err
		}
		if err := tx.Where("site_id = ?", id).Delete(&models.SiteOperation{}).Error; err != nil {
			return err
		}
		return tx.Delete(site).Error
	})
	if err != nil {
		return err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityDelete, "deleted site "+site.Name, "")
	return nil
}

// LogOperation appends a note to the site's operation history.
func (s *SiteService) LogOperation(ctx context.Context, siteID uint, description string, actor *models.User) (*models.SiteOperation, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, validationError(map[string]string{"description": "required"}, "description required")
	}
	if _, err := s.Get(ctx, siteID); err != nil {
		return nil, err
	}
	op := models.SiteOperation{SiteID: siteID, Description: description}
	if actor != nil {
		op.RecordedByID = &actor.ID
	}
	if err := s.db.WithContext(ctx).Create(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

// Operations lists the history of a site, newest first.
func (s *SiteService) Operations(ctx context.Context, siteID uint, page Page) (List[models.SiteOperation], error) {
	if _, err := s.Get(ctx, siteID); err != nil {
		return List[models.SiteOperation]{}, err
	}
	q := s.db.WithContext(ctx).Model(&models.SiteOperation{}).Where("site_id = ?", siteID)
	return paginate[models.SiteOperation](q, page, "timestamp DESC, id DESC")
}

// Statistics counts every extraction of the site and sums their quantities
// regardless of status.
func (s *SiteService) Statistics(ctx context.Context, siteID uint) (*SiteStatistics, error) {
	site, err := s.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	var quantities []decimal.Decimal
	if err := s.db.WithContext(ctx).Model(&models.Extraction{}).Where("site_id = ?", siteID).Pluck("quantity_tonnes", &quantities).Error; err != nil {
		return nil, err
	}
	stats := &SiteStatistics{
		SiteID:           site.ID,
		SiteName:         site.Name,
		TotalExtractions: int64(len(quantities)),
		TotalQuantity:    decimal.Sum(decimal.Zero, quantities...),
		CurrentStock:     decimal.Zero,
	}
	if site.Stock != nil {
		stats.CurrentStock = site.Stock.QuantityInStock
	}
	return stats, nil
}
