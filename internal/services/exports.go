package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/metrics"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/storage"
	"github.com/diewo77/sgm/internal/validation"
)

var paymentStatuses = []models.PaymentStatus{models.PaymentPending, models.PaymentPartiallyPaid, models.PaymentPaid}

// ExportInput is the writable part of an export. Status and approver are
// managed by the approval workflow; the total is always computed.
type ExportInput struct {
	ReferenceNumber    string               `json:"reference_number" binding:"required,max=100"`
	TransportID        uint                 `json:"transport_id" binding:"required"`
	QuantityExported   decimal.Decimal      `json:"quantity_exported"`
	DestinationCountry string               `json:"destination_country" binding:"required,max=100"`
	Buyer              string               `json:"buyer" binding:"required,max=200"`
	UnitPrice          decimal.Decimal      `json:"unit_price"`
	PaymentStatus      models.PaymentStatus `json:"payment_status"`
	ExportDate         *models.Date         `json:"export_date"`
	ExpectedDelivery   *models.Date         `json:"expected_delivery"`
	ActualDelivery     *models.Date         `json:"actual_delivery"`
	Notes              string               `json:"notes"`
}

func ExportInputFrom(e *models.Export) ExportInput {
	return ExportInput{
		ReferenceNumber:    e.ReferenceNumber,
		TransportID:        e.TransportID,
		QuantityExported:   e.QuantityExported,
		DestinationCountry: e.DestinationCountry,
		Buyer:              e.Buyer,
		UnitPrice:          e.UnitPrice,
		PaymentStatus:      e.PaymentStatus,
		ExportDate:         e.ExportDate,
		ExpectedDelivery:   e.ExpectedDelivery,
		ActualDelivery:     e.ActualDelivery,
		Notes:              e.Notes,
	}
}

func (in *ExportInput) check() error {
	in.ReferenceNumber = strings.TrimSpace(in.ReferenceNumber)
	if in.PaymentStatus == "" {
		in.PaymentStatus = models.PaymentPending
	}
	if err := validateInput(in); err != nil {
		return err
	}
	v := validation.Violations{}
	if in.QuantityExported.IsNegative() {
		v.Add("quantity_exported", "too_small")
	}
	if in.UnitPrice.IsNegative() {
		v.Add("unit_price", "too_small")
	}
	validation.OneOf("payment_status", in.PaymentStatus, paymentStatuses, v)
	if !v.Empty() {
		return validationError(v, "validation failed")
	}
	return nil
}

func (in ExportInput) apply(e *models.Export) {
	e.ReferenceNumber = in.ReferenceNumber
	e.TransportID = in.TransportID
	e.QuantityExported = in.QuantityExported
	e.DestinationCountry = in.DestinationCountry
	e.Buyer = in.Buyer
	e.UnitPrice = in.UnitPrice
	e.PaymentStatus = in.PaymentStatus
	e.ExportDate = in.ExportDate
	e.ExpectedDelivery = in.ExpectedDelivery
	e.ActualDelivery = in.ActualDelivery
	e.Notes = in.Notes
	e.ComputeTotal()
}

// Upload is a document attached through UploadDocument.
type Upload struct {
	Type     models.DocumentType
	FileName string
	Content  io.Reader
}

// ExportService runs the customs approval workflow:
// pending -> approved | rejected, approved -> shipped -> delivered.
type ExportService struct {
	db            *gorm.DB
	store         *storage.Store
	notifications *NotificationService
	activity      *ActivityService
	log           logger.Logger
	now           func() time.Time
}

func NewExportService(db *gorm.DB, store *storage.Store, notifications *NotificationService, activity *ActivityService, log logger.Logger) *ExportService {
	return &ExportService{db: db, store: store, notifications: notifications, activity: activity, log: log, now: time.Now}
}

func (s *ExportService) checkTransport(tx *gorm.DB, id uint) error {
	ok, err := exists(tx, &models.Transport{}, id)
	if err != nil {
		return err
	}
	if !ok {
		return validationError(map[string]string{"transport_id": "not_found"}, "transport does not exist")
	}
	return nil
}

// Create registers a pending export.
func (s *ExportService) Create(ctx context.Context, in ExportInput, actor *models.User) (*models.Export, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	e := models.Export{Status: models.ExportPending}
	in.apply(&e)
	var emails []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkTransport(tx, in.TransportID); err != nil {
			return err
		}
		if err := tx.Create(&e).Error; err != nil {
			return duplicateOr(err, "reference_number", "reference number already in use")
		}
		var err error
		emails, err = s.notifications.NotifyRoles(tx, Message{
			Title:     "Export " + e.ReferenceNumber + " awaiting approval",
			Body:      fmt.Sprintf("Export %s to %s (%s t) awaits customs approval.", e.ReferenceNumber, e.DestinationCountry, e.QuantityExported.StringFixed(2)),
			Type:      models.NotifyExport,
			Priority:  models.PriorityMedium,
			RelatedID: &e.ID,
		}, roles.Douane)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(ctx, emails)
	metrics.Transition("export", string(e.Status))
	s.activity.Record(ctx, actorID(actor), models.ActivityCreate, "created export "+e.ReferenceNumber, "")
	return &e, nil
}

func (s *ExportService) Get(ctx context.Context, id uint) (*models.Export, error) {
	var e models.Export
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFoundOr(err, "export")
	}
	return &e, nil
}

// ExportFilter narrows List.
type ExportFilter struct {
	Status models.ExportStatus
	Search string
}

func (s *ExportService) List(ctx context.Context, f ExportFilter, page Page) (List[models.Export], error) {
	q := s.db.WithContext(ctx).Model(&models.Export{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(reference_number) LIKE ? OR LOWER(buyer) LIKE ?", like, like)
	}
	return paginate[models.Export](q, page, "id DESC")
}

// Update edits an export and recomputes its total. The status is never
// changed here.
func (s *ExportService) Update(ctx context.Context, id uint, in ExportInput, actor *models.User) (*models.Export, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(e)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkTransport(tx, in.TransportID); err != nil {
			return err
		}
		err := tx.Model(&models.Export{ID: id}).Updates(map[string]any{
			"reference_number":    e.ReferenceNumber,
			"transport_id":        e.TransportID,
			"quantity_exported":   e.QuantityExported,
			"destination_country": e.DestinationCountry,
			"buyer":               e.Buyer,
			"unit_price":          e.UnitPrice,
			"total_amount":        e.TotalAmount,
			"payment_status":      e.PaymentStatus,
			"export_date":         e.ExportDate,
			"expected_delivery":   e.ExpectedDelivery,
			"actual_delivery":     e.ActualDelivery,
			"notes":               e.Notes,
		}).Error
		return duplicateOr(err, "reference_number", "reference number already in use")
	})
	if err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityUpdate, "updated export "+e.ReferenceNumber, "")
	return s.Get(ctx, id)
}

// Delete removes an export, its documents and their files.
func (s *ExportService) Delete(ctx context.Context, id uint, actor *models.User) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	var docs []models.ExportDocument
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("export_id = ?", id).Find(&docs).Error; err != nil {
			return err
		}
		if err := tx.Where("export_id = ?", id).Delete(&models.ExportDocument{}).Error; err != nil {
			return err
		}
		return tx.Delete(e).Error
	})
	if err != nil {
		return err
	}
	for _, d := range docs {
		if err := s.store.Remove(d.FilePath); err != nil {
			s.log.Warn("Failed to remove export document", "path", d.FilePath, "error", err)
		}
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityDelete, "deleted export "+e.ReferenceNumber, "")
	return nil
}

// decide applies a customs decision. The export must exist, the actor must
// hold the douane role and the export must still be pending, checked in
// that order.
func (s *ExportService) decide(ctx context.Context, id uint, actor *models.User, to models.ExportStatus, denied string) (*models.Export, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || !actor.HasRole(roles.Douane) {
		return nil, forbidden(denied)
	}
	updates := map[string]any{}
	if to == models.ExportApproved {
		updates["approved_by_id"] = actor.ID
	}
	return s.transition(ctx, e, to, updates, actor)
}

// transition moves e to status to with a conditional update and notifies
// the admins.
func (s *ExportService) transition(ctx context.Context, e *models.Export, to models.ExportStatus, updates map[string]any, actor *models.User) (*models.Export, error) {
	from := e.Status
	if !from.CanTransition(to) {
		return nil, conflict("export cannot move from %s to %s", from, to)
	}
	updates["status"] = to
	var emails []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Export{}).Where("id = ? AND status = ?", e.ID, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return conflict("export cannot move from %s to %s", from, to)
		}
		var err error
		emails, err = s.notifications.NotifyRoles(tx, Message{
			Title:     fmt.Sprintf("Export %s %s", e.ReferenceNumber, to),
			Body:      fmt.Sprintf("Export %s moved from %s to %s by %s.", e.ReferenceNumber, from, to, actorName(actor)),
			Type:      models.NotifyExport,
			Priority:  models.PriorityMedium,
			RelatedID: &e.ID,
		}, roles.Admin)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifications.Deliver(ctx, emails)
	metrics.Transition("export", string(to))
	s.activity.Record(ctx, actorID(actor), models.ActivityUpdate, fmt.Sprintf("export %s %s", e.ReferenceNumber, to), "")
	return s.Get(ctx, e.ID)
}

// Approve records a customs approval.
func (s *ExportService) Approve(ctx context.Context, id uint, actor *models.User) (*models.Export, error) {
	return s.decide(ctx, id, actor, models.ExportApproved, "only customs can approve")
}

// Reject records a customs rejection. The approver is left unset.
func (s *ExportService) Reject(ctx context.Context, id uint, actor *models.User) (*models.Export, error) {
	return s.decide(ctx, id, actor, models.ExportRejected, "only customs can reject")
}

// Ship marks an approved export as shipped and stamps the export date when
// missing.
func (s *ExportService) Ship(ctx context.Context, id uint, actor *models.User) (*models.Export, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if e.ExportDate == nil {
		updates["export_date"] = models.NewDate(s.now())
	}
	return s.transition(ctx, e, models.ExportShipped, updates, actor)
}

// Deliver marks a shipped export as delivered today.
func (s *ExportService) Deliver(ctx context.Context, id uint, actor *models.User) (*models.Export, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, e, models.ExportDelivered, map[string]any{"actual_delivery": models.NewDate(s.now())}, actor)
}

// UploadDocument stores a file and attaches it to export id.
func (s *ExportService) UploadDocument(ctx context.Context, id uint, up Upload, actor *models.User) (*models.ExportDocument, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if up.Type == "" || up.Content == nil || up.FileName == "" {
		return nil, validationError(nil, "document type and file required")
	}
	if !up.Type.Valid() {
		return nil, validationError(map[string]string{"document_type": "invalid_choice"}, "unknown document type %q", up.Type)
	}
	mime, content, err := storage.DetectDocument(up.FileName, up.Content)
	switch {
	case errors.Is(err, storage.ErrExtensionNotAllowed):
		return nil, validationError(map[string]string{"document_file": "invalid_extension"},
			"allowed extensions: %s", strings.Join(storage.AllowedExtensions(), ", "))
	case errors.Is(err, storage.ErrContentMismatch):
		return nil, validationError(map[string]string{"document_file": "invalid_content"}, "file content does not match its extension")
	case err != nil:
		return nil, err
	}

	name := storage.FileName(up.FileName)
	key := fmt.Sprintf("exports/%d/%s-%s", id, uuid.NewString(), name)
	size, err := s.store.Save(key, content)
	if err != nil {
		return nil, fmt.Errorf("store export document: %w", err)
	}
	doc := models.ExportDocument{
		ExportID:     id,
		DocumentType: up.Type,
		FilePath:     key,
		FileName:     name,
		MimeType:     mime,
		Size:         size,
	}
	if actor != nil {
		doc.UploadedByID = &actor.ID
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		if rmErr := s.store.Remove(key); rmErr != nil {
			s.log.Warn("Failed to remove orphan document", "path", key, "error", rmErr)
		}
		return nil, err
	}
	return &doc, nil
}

// Documents lists the attachments of export id.
func (s *ExportService) Documents(ctx context.Context, id uint) ([]models.ExportDocument, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	var docs []models.ExportDocument
	if err := s.db.WithContext(ctx).Where("export_id = ?", id).Order("uploaded_at, id").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func actorName(actor *models.User) string {
	if actor == nil {
		return "system"
	}
	return actor.FullName()
}
