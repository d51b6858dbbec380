package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/validation"
)

// ExtractionInput is the writable part of an extraction.
type ExtractionInput struct {
	SiteID         uint                    `json:"site_id" binding:"required"`
	ExtractionDate models.Date             `json:"extraction_date"`
	QuantityTonnes decimal.Decimal         `json:"quantity_tonnes"`
	QualityGrade   string                  `json:"quality_grade" binding:"max=50"`
	OperatorID     *uint                   `json:"operator_id"`
	Status         models.ExtractionStatus `json:"status"`
	Notes          string                  `json:"notes"`
}

// ExtractionInputFrom returns the input reproducing e.
func ExtractionInputFrom(e *models.Extraction) ExtractionInput {
	return ExtractionInput{
		SiteID:         e.SiteID,
		ExtractionDate: e.ExtractionDate,
		QuantityTonnes: e.QuantityTonnes,
		QualityGrade:   e.QualityGrade,
		OperatorID:     e.OperatorID,
		Status:         e.Status,
		Notes:          e.Notes,
	}
}

func (in *ExtractionInput) check() error {
	if in.Status == "" {
		in.Status = models.ExtractionPlanned
	}
	if err := validateInput(in); err != nil {
		return err
	}
	v := validation.Violations{}
	if in.ExtractionDate.IsZero() {
		v.Add("extraction_date", "required")
	}
	if in.QuantityTonnes.IsNegative() {
		v.Add("quantity_tonnes", "too_small")
	}
	validation.OneOf("status", in.Status, models.ExtractionStatuses, v)
	if !v.Empty() {
		return validationError(v, "validation failed")
	}
	return nil
}

func (in ExtractionInput) apply(e *models.Extraction) {
	e.SiteID = in.SiteID
	e.ExtractionDate = in.ExtractionDate
	e.QuantityTonnes = in.QuantityTonnes
	e.QualityGrade = in.QualityGrade
	e.OperatorID = in.OperatorID
	e.Status = in.Status
	e.Notes = in.Notes
}

// ExtractionService records extractions and keeps every site's stock equal
// to the sum of its completed extractions.
type ExtractionService struct {
	db       *gorm.DB
	activity *ActivityService
	log      logger.Logger
}

func NewExtractionService(db *gorm.DB, activity *ActivityService, log logger.Logger) *ExtractionService {
	return &ExtractionService{db: db, activity: activity, log: log}
}

// RecomputeStock overwrites the stock of siteID with the sum of its
// completed extractions, creating the stock row when missing. It must run
// in the transaction that changed the extractions.
func RecomputeStock(tx *gorm.DB, siteID uint) (*models.Stock, error) {
	var quantities []decimal.Decimal
	err := tx.Model(&models.Extraction{}).
		Where("site_id = ? AND status = ?", siteID, models.ExtractionCompleted).
		Pluck("quantity_tonnes", &quantities).Error
	if err != nil {
		return nil, fmt.Errorf("sum extractions of site %d: %w", siteID, err)
	}
	total := decimal.Sum(decimal.Zero, quantities...)

	stock := models.Stock{SiteID: siteID}
	if err := tx.Where(models.Stock{SiteID: siteID}).Attrs(models.Stock{QuantityInStock: decimal.Zero}).FirstOrCreate(&stock).Error; err != nil {
		return nil, fmt.Errorf("load stock of site %d: %w", siteID, err)
	}
	stock.QuantityInStock = total
	if err := tx.Model(&stock).Update("quantity_in_stock", total).Error; err != nil {
		return nil, fmt.Errorf("update stock of site %d: %w", siteID, err)
	}
	return &stock, nil
}

func (s *ExtractionService) checkRefs(tx *gorm.DB, in ExtractionInput) error {
	ok, err := exists(tx, &models.Site{}, in.SiteID)
	if err != nil {
		return err
	}
	if !ok {
		return validationError(map[string]string{"site_id": "not_found"}, "site does not exist")
	}
	return checkAssignee(tx, "operator_id", in.OperatorID, roles.AgentMinier, roles.ResponsableSite)
}

// Record persists an extraction and recomputes its site's stock in one
// transaction.
func (s *ExtractionService) Record(ctx context.Context, in ExtractionInput, actor *models.User) (*models.Extraction, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	var e models.Extraction
	in.apply(&e)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}
		if err := tx.Create(&e).Error; err != nil {
			return err
		}
		_, err := RecomputeStock(tx, e.SiteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityCreate, fmt.Sprintf("recorded extraction %d at site %d", e.ID, e.SiteID), "")
	return &e, nil
}

func (s *ExtractionService) Get(ctx context.Context, id uint) (*models.Extraction, error) {
	var e models.Extraction
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFoundOr(err, "extraction")
	}
	return &e, nil
}

// ExtractionFilter narrows List.
type ExtractionFilter struct {
	SiteID uint
	Status models.ExtractionStatus
}

func (s *ExtractionService) List(ctx context.Context, f ExtractionFilter, page Page) (List[models.Extraction], error) {
	q := s.db.WithContext(ctx).Model(&models.Extraction{})
	if f.SiteID != 0 {
		q = q.Where("site_id = ?", f.SiteID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return paginate[models.Extraction](q, page, "extraction_date DESC, id DESC")
}

// BySite lists the extractions of one site.
func (s *ExtractionService) BySite(ctx context.Context, siteID uint, page Page) (List[models.Extraction], error) {
	if siteID == 0 {
		return List[models.Extraction]{}, validationError(map[string]string{"site_id": "required"}, "site_id required")
	}
	return s.List(ctx, ExtractionFilter{SiteID: siteID}, page)
}

// Update rewrites an extraction and recomputes the stock of its site, and
// of its previous site when it moved.
func (s *ExtractionService) Update(ctx context.Context, id uint, in ExtractionInput, actor *models.User) (*models.Extraction, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousSite := e.SiteID
	in.apply(e)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRefs(tx, in); err != nil {
			return err
		}
		err := tx.Model(&models.Extraction{ID: e.ID}).Updates(map[string]any{
			"site_id":         e.SiteID,
			"extraction_date": e.ExtractionDate,
			"quantity_tonnes": e.QuantityTonnes,
			"quality_grade":   e.QualityGrade,
			"operator_id":     e.OperatorID,
			"status":          e.Status,
			"notes":           e.Notes,
		}).Error
		if err != nil {
			return err
		}
		if previousSite != e.SiteID {
			if _, err := RecomputeStock(tx, previousSite); err != nil {
				return err
			}
		}
		_, err = RecomputeStock(tx, e.SiteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityUpdate, fmt.Sprintf("updated extraction %d", e.ID), "")
	return s.Get(ctx, id)
}

// Delete removes an extraction no transport refers to.
func (s *ExtractionService) Delete(ctx context.Context, id uint, actor *models.User) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Transport{}).Where("extraction_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict("extraction is referenced by %d transports", n)
		}
		if err := tx.Delete(e).Error; err != nil {
			return err
		}
		_, err := RecomputeStock(tx, e.SiteID)
		return err
	})
	if err != nil {
		return err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityDelete, fmt.Sprintf("deleted extraction %d", id), "")
	return nil
}

// Stock returns the stock of one site.
func (s *ExtractionService) Stock(ctx context.Context, id uint) (*models.Stock, error) {
	var st models.Stock
	if err := s.db.WithContext(ctx).First(&st, id).Error; err != nil {
		return nil, notFoundOr(err, "stock")
	}
	return &st, nil
}

// Stocks lists every site's stock.
func (s *ExtractionService) Stocks(ctx context.Context, page Page) (List[models.Stock], error) {
	return paginate[models.Stock](s.db.WithContext(ctx).Model(&models.Stock{}), page, "site_id")
}
