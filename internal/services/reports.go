package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/metrics"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/report"
	"github.com/diewo77/sgm/internal/storage"
)

// ReportInput selects the period and format of a generated report.
type ReportInput struct {
	StartDate models.Date         `json:"start_date"`
	EndDate   models.Date         `json:"end_date"`
	Format    models.ReportFormat `json:"format"`
}

func (in *ReportInput) check() error {
	if in.Format == "" {
		in.Format = models.FormatPDF
	}
	v := map[string]string{}
	if in.StartDate.IsZero() {
		v["start_date"] = "required"
	}
	if in.EndDate.IsZero() {
		v["end_date"] = "required"
	}
	if !in.Format.Valid() {
		v["format"] = "invalid_choice"
	}
	if len(v) > 0 {
		return validationError(v, "validation failed")
	}
	if in.StartDate.After(in.EndDate.Time) {
		return validationError(map[string]string{"end_date": "before_start"}, "start_date must not be after end_date")
	}
	return nil
}

// ReportService generates, stores and serves report files.
type ReportService struct {
	db       *gorm.DB
	store    *storage.Store
	activity *ActivityService
	log      logger.Logger
}

func NewReportService(db *gorm.DB, store *storage.Store, activity *ActivityService, log logger.Logger) *ReportService {
	return &ReportService{db: db, store: store, activity: activity, log: log}
}

// GenerateExtractionReport lists the extractions dated within the period.
func (s *ReportService) GenerateExtractionReport(ctx context.Context, in ReportInput, actor *models.User) (*models.Report, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Extraction report %s to %s", in.StartDate, in.EndDate)
	return s.generate(ctx, title, models.ReportExtractionSummary, in, actor, func(tx *gorm.DB) (*report.Table, error) {
		var rows []struct {
			ID             uint
			ExtractionDate models.Date
			SiteName       string
			QuantityTonnes decimal.Decimal
			QualityGrade   string
			Status         models.ExtractionStatus
		}
		err := tx.Table("extractions").
			Select("extractions.id, extractions.extraction_date, sites.name AS site_name, extractions.quantity_tonnes, extractions.quality_grade, extractions.status").
			Joins("JOIN sites ON sites.id = extractions.site_id").
			Where("extractions.extraction_date BETWEEN ? AND ?", in.StartDate, in.EndDate).
			Order("extractions.extraction_date, extractions.id").
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		t := &report.Table{Columns: []string{"ID", "Date", "Site", "Quantity (t)", "Grade", "Status"}}
		total, completed := decimal.Zero, decimal.Zero
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{
				strconv.FormatUint(uint64(r.ID), 10), r.ExtractionDate.String(), r.SiteName,
				r.QuantityTonnes.StringFixed(2), r.QualityGrade, string(r.Status),
			})
			total = total.Add(r.QuantityTonnes)
			if r.Status == models.ExtractionCompleted {
				completed = completed.Add(r.QuantityTonnes)
			}
		}
		t.Totals = [][2]string{
			{"Extractions", strconv.Itoa(len(rows))},
			{"Total quantity (t)", total.StringFixed(2)},
			{"Completed quantity (t)", completed.StringFixed(2)},
		}
		return t, nil
	})
}

// GenerateExportReport lists the exports created within the period.
func (s *ReportService) GenerateExportReport(ctx context.Context, in ReportInput, actor *models.User) (*models.Report, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Export report %s to %s", in.StartDate, in.EndDate)
	return s.generate(ctx, title, models.ReportExportAnalysis, in, actor, func(tx *gorm.DB) (*report.Table, error) {
		var exports []models.Export
		end := in.EndDate.AddDate(0, 0, 1)
		err := tx.Where("created_at >= ? AND created_at < ?", in.StartDate.Time, end).
			Order("created_at, id").Find(&exports).Error
		if err != nil {
			return nil, err
		}
		t := &report.Table{Columns: []string{"Reference", "Destination", "Buyer", "Quantity (t)", "Unit price", "Total", "Status", "Payment"}}
		quantity, revenue := decimal.Zero, decimal.Zero
		for _, e := range exports {
			t.Rows = append(t.Rows, []string{
				e.ReferenceNumber, e.DestinationCountry, e.Buyer, e.QuantityExported.StringFixed(2),
				e.UnitPrice.StringFixed(2), e.TotalAmount.StringFixed(2), string(e.Status), string(e.PaymentStatus),
			})
			quantity = quantity.Add(e.QuantityExported)
			revenue = revenue.Add(e.TotalAmount)
		}
		t.Totals = [][2]string{
			{"Exports", strconv.Itoa(len(exports))},
			{"Total quantity (t)", quantity.StringFixed(2)},
			{"Total amount", revenue.StringFixed(2)},
		}
		return t, nil
	})
}

// generate creates the report row, renders the table built by rows and
// stores the file. Nothing is kept when any step fails.
func (s *ReportService) generate(ctx context.Context, title string, typ models.ReportType, in ReportInput, actor *models.User, rows func(tx *gorm.DB) (*report.Table, error)) (*models.Report, error) {
	renderer, err := report.For(string(in.Format))
	if err != nil {
		return nil, validationError(map[string]string{"format": "invalid_choice"}, "%s", err.Error())
	}
	rep := models.Report{
		Title:      title,
		ReportType: typ,
		Format:     in.Format,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
	}
	if actor != nil {
		rep.GeneratedByID = &actor.ID
	}
	var key string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rep).Error; err != nil {
			return err
		}
		table, err := rows(tx)
		if err != nil {
			return fmt.Errorf("collect report rows: %w", err)
		}
		table.Title = title
		table.Period = in.StartDate.String() + " - " + in.EndDate.String()

		var buf bytes.Buffer
		if err := renderer.Render(&buf, table); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		key = fmt.Sprintf("reports/%s-%d.%s", slug.Make(title), rep.ID, renderer.Extension())
		if _, err := s.store.Save(key, &buf); err != nil {
			return fmt.Errorf("store report: %w", err)
		}
		rep.FilePath = key
		return tx.Model(&rep).Update("file_path", key).Error
	})
	if err != nil {
		if key != "" {
			if rmErr := s.store.Remove(key); rmErr != nil {
				s.log.Warn("Failed to remove report file", "path", key, "error", rmErr)
			}
		}
		return nil, err
	}
	metrics.ReportsGenerated.WithLabelValues(string(typ), string(in.Format)).Inc()
	s.activity.Record(ctx, actorID(actor), models.ActivityExport, "generated "+title, "")
	return &rep, nil
}

func (s *ReportService) Get(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFoundOr(err, "report")
	}
	return &r, nil
}

func (s *ReportService) List(ctx context.Context, typ models.ReportType, page Page) (List[models.Report], error) {
	q := s.db.WithContext(ctx).Model(&models.Report{})
	if typ != "" {
		q = q.Where("report_type = ?", typ)
	}
	return paginate[models.Report](q, page, "generated_at DESC, id DESC")
}

// Delete removes a report and its file.
func (s *ReportService) Delete(ctx context.Context, id uint) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(r).Error; err != nil {
		return err
	}
	if r.FilePath != "" {
		if err := s.store.Remove(r.FilePath); err != nil {
			s.log.Warn("Failed to remove report file", "path", r.FilePath, "error", err)
		}
	}
	return nil
}

// ReportFile is an open report ready to be streamed.
type ReportFile struct {
	Report      *models.Report
	Name        string
	ContentType string
	Content     []byte
}

// Open loads the stored file of report id.
func (s *ReportService) Open(ctx context.Context, id uint, actor *models.User) (*ReportFile, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	renderer, err := report.For(string(r.Format))
	if err != nil {
		return nil, err
	}
	if r.FilePath == "" {
		return nil, notFound("report file")
	}
	f, err := s.store.Open(r.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound("report file")
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityDownload, "downloaded "+r.Title, "")
	return &ReportFile{
		Report:      r,
		Name:        fmt.Sprintf("%s-%d.%s", slug.Make(r.Title), r.ID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     buf.Bytes(),
	}, nil
}
