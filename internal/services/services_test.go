package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/db/dbtest"
	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
	"github.com/diewo77/sgm/internal/storage"
)

type sentMail struct {
	To, Subject, Body string
}

// recordingMailer keeps every email it is asked to send and fails when
// err is set.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

type invalidations struct {
	mu  sync.Mutex
	ids []uint
}

func (i *invalidations) Invalidate(id uint) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, id)
}

type env struct {
	db            *gorm.DB
	mailer        *recordingMailer
	fs            afero.Fs
	tokens        *auth.Manager
	activity      *services.ActivityService
	notifications *services.NotificationService
	users         *services.UserService
	sites         *services.SiteService
	extractions   *services.ExtractionService
	trucks        *services.TruckService
	transports    *services.TransportService
	exports       *services.ExportService
	environment   *services.EnvironmentService
	reports       *services.ReportService
	dashboard     *services.DashboardService
	invalidated   *invalidations
}

func newEnv(t *testing.T) *env {
	t.Helper()
	conn := dbtest.New(t)
	log := logger.NewLogger(logger.TestConfig())
	e := &env{
		db:          conn,
		mailer:      &recordingMailer{},
		fs:          afero.NewMemMapFs(),
		invalidated: &invalidations{},
		tokens: auth.NewManager(config.AuthConfig{
			SessionSecret:    "session-secret",
			JWTSecret:        "jwt-secret",
			AccessTTL:        time.Minute,
			RefreshTTL:       time.Hour,
			PasswordResetTTL: time.Hour,
		}),
	}
	store := storage.New(e.fs)
	e.activity = services.NewActivityService(conn, log)
	e.notifications = services.NewNotificationService(conn, e.mailer, log)
	e.users = services.NewUserService(conn, e.tokens, e.invalidated, e.activity, e.notifications, log)
	e.sites = services.NewSiteService(conn, e.activity, log)
	e.extractions = services.NewExtractionService(conn, e.activity, log)
	e.trucks = services.NewTruckService(conn)
	e.transports = services.NewTransportService(conn, log)
	e.exports = services.NewExportService(conn, store, e.notifications, e.activity, log)
	e.environment = services.NewEnvironmentService(conn, e.notifications, log)
	e.reports = services.NewReportService(conn, store, e.activity, log)
	e.dashboard = services.NewDashboardService(conn, log)
	return e
}

// user creates an active account with role directly in the database.
func (e *env) user(t *testing.T, username string, role roles.Role) *models.User {
	t.Helper()
	var profile models.Profile
	require.NoError(t, e.db.Where("name = ?", string(role)).First(&profile).Error)
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	u := models.User{
		Username: username, Email: username + "@example.com", Password: hash,
		Role: role, IsActive: true, ReceiveNotifications: true, Language: "fr", ProfileID: &profile.ID,
	}
	require.NoError(t, e.db.Create(&u).Error)
	return &u
}

func (e *env) site(t *testing.T, name string) *models.Site {
	t.Helper()
	s, err := e.sites.Create(context.Background(), services.SiteInput{
		Name:          name,
		MineralType:   models.MineralBauxite,
		Capacity:      dec("1000"),
		LicenseNumber: "LIC-" + name,
	}, nil)
	require.NoError(t, err)
	return s
}

func (e *env) extraction(t *testing.T, siteID uint, qty string, status models.ExtractionStatus) *models.Extraction {
	t.Helper()
	x, err := e.extractions.Record(context.Background(), services.ExtractionInput{
		SiteID:         siteID,
		ExtractionDate: day(2024, 3, 15),
		QuantityTonnes: dec(qty),
		Status:         status,
	}, nil)
	require.NoError(t, err)
	return x
}

func (e *env) transport(t *testing.T, extractionID uint) *models.Transport {
	t.Helper()
	tr, err := e.transports.Create(context.Background(), services.TransportInput{
		ExtractionID:        extractionID,
		DepartureLocation:   "Mine A",
		Destination:         "Port",
		QuantityTransported: dec("40"),
	})
	require.NoError(t, err)
	return tr
}

func (e *env) export(t *testing.T, transportID uint, ref string) *models.Export {
	t.Helper()
	x, err := e.exports.Create(context.Background(), services.ExportInput{
		ReferenceNumber:    ref,
		TransportID:        transportID,
		QuantityExported:   dec("12.5"),
		DestinationCountry: "Ghana",
		Buyer:              "ACME",
		UnitPrice:          dec("80.10"),
	}, nil)
	require.NoError(t, err)
	return x
}

func (e *env) stock(t *testing.T, siteID uint) decimal.Decimal {
	t.Helper()
	var st models.Stock
	require.NoError(t, e.db.Where("site_id = ?", siteID).First(&st).Error)
	return st.QuantityInStock
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) models.Date {
	return models.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
