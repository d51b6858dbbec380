package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/metrics"
	"github.com/diewo77/sgm/internal/policy"
	"github.com/diewo77/sgm/internal/roles"
	"github.com/diewo77/sgm/internal/services"
	"github.com/diewo77/sgm/internal/storage"
)

// RouterConfig holds the authorization gate, the use cases and the
// handlers built on them.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *policy.AuthGate
	Tokens   *auth.Manager
	Log      logger.Logger

	// Services
	Activity      *services.ActivityService
	Notifications *services.NotificationService
	Users         *services.UserService
	Sites         *services.SiteService
	Extractions   *services.ExtractionService
	Trucks        *services.TruckService
	Transports    *services.TransportService
	Exports       *services.ExportService
	Environment   *services.EnvironmentService
	Reports       *services.ReportService
	Dashboard     *services.DashboardService

	// Handlers
	AuthHandler         *AuthHandler
	UserHandler         *UserHandler
	ActivityHandler     *ActivityHandler
	AdminHandler        *AdminHandler
	SiteHandler         *SiteHandler
	ExtractionHandler   *ExtractionHandler
	TruckHandler        *TruckHandler
	TransportHandler    *TransportHandler
	ExportHandler       *ExportHandler
	EnvironmentHandler  *EnvironmentHandler
	NotificationHandler *NotificationHandler
	DashboardHandler    *DashboardHandler

	// TokenRateLimit guards the credential endpoints.
	TokenRateLimit gin.HandlerFunc
}

// NewRouterConfig wires the gate, the services and the handlers.
func NewRouterConfig(db *gorm.DB, cfg *config.Config, store *storage.Store, mailer services.Mailer, log logger.Logger) (*RouterConfig, error) {
	authGate := policy.NewAuthGate(db, cfg.Auth.ProfileCacheSize, cfg.Auth.ProfileCacheTTL)
	tokens := auth.NewManager(cfg.Auth)

	activity := services.NewActivityService(db, log)
	notifications := services.NewNotificationService(db, mailer, log)
	users := services.NewUserService(db, tokens, authGate, activity, notifications, log)
	// Identities of disabled or deleted users are dropped on every request.
	tokens.SetUserVerifier(users.Active)

	limit, err := RateLimit(cfg.Auth.TokenRateLimit)
	if err != nil {
		return nil, fmt.Errorf("token rate limit %q: %w", cfg.Auth.TokenRateLimit, err)
	}

	rc := &RouterConfig{
		AuthGate:       authGate,
		Tokens:         tokens,
		Log:            log,
		Activity:       activity,
		Notifications:  notifications,
		Users:          users,
		Sites:          services.NewSiteService(db, activity, log),
		Extractions:    services.NewExtractionService(db, activity, log),
		Trucks:         services.NewTruckService(db),
		Transports:     services.NewTransportService(db, log),
		Exports:        services.NewExportService(db, store, notifications, activity, log),
		Environment:    services.NewEnvironmentService(db, notifications, log),
		Reports:        services.NewReportService(db, store, activity, log),
		Dashboard:      services.NewDashboardService(db, log),
		TokenRateLimit: limit,
	}
	rc.AuthHandler = NewAuthHandler(users, tokens)
	rc.UserHandler = NewUserHandler(users, authGate)
	rc.ActivityHandler = NewActivityHandler(activity)
	rc.AdminHandler = NewAdminHandler(users)
	rc.SiteHandler = NewSiteHandler(users, rc.Sites)
	rc.ExtractionHandler = NewExtractionHandler(users, rc.Extractions)
	rc.TruckHandler = NewTruckHandler(rc.Trucks)
	rc.TransportHandler = NewTransportHandler(rc.Transports)
	rc.ExportHandler = NewExportHandler(users, rc.Exports)
	rc.EnvironmentHandler = NewEnvironmentHandler(users, rc.Environment)
	rc.NotificationHandler = NewNotificationHandler(notifications, authGate)
	rc.DashboardHandler = NewDashboardHandler(users, rc.Dashboard, rc.Reports)
	return rc, nil
}

// NewRouter builds the gin engine with every route and its guard.
func NewRouter(rc *RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(rc.Log), metrics.Middleware(), rc.Tokens.Middleware())

	ag := rc.AuthGate
	authed := ag.RequireAuth()
	perm := ag.RequirePermission

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes
	// ─────────────────────────────────────────────────────────────────────────
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	ah := rc.AuthHandler
	r.POST("/api/token/", rc.TokenRateLimit, ah.Token)
	r.POST("/api/token/refresh/", ah.Refresh)
	r.POST("/auth/login", rc.TokenRateLimit, ah.Login)
	r.POST("/auth/logout", ah.Logout)
	r.POST("/api/auth/password-reset", ah.PasswordReset)
	r.POST("/api/auth/password-reset/confirm", ah.PasswordResetConfirm)

	// ─────────────────────────────────────────────────────────────────────────
	// Dashboard landings
	// ─────────────────────────────────────────────────────────────────────────
	dh := rc.DashboardHandler
	r.GET("/dashboard", perm(roles.DashboardView), dh.Redirect)
	for _, l := range roles.Landings() {
		guard := authed
		if role, ok := l.Role(); ok {
			guard = ag.RequireRole(role)
		}
		r.GET(l.Path(), guard, dh.Landing(l))
	}

	api := r.Group("/api")

	// Users: registration is open, everything else needs an identity.
	uh := rc.UserHandler
	api.POST("/users", uh.Create)
	api.GET("/users", authed, uh.List)
	api.GET("/users/me", authed, uh.Me)
	api.GET("/users/:id", authed, uh.Get)
	api.PUT("/users/:id", authed, uh.Update)
	api.PATCH("/users/:id", authed, uh.Update)
	api.DELETE("/users/:id", perm(roles.UserDelete), uh.Delete)
	api.POST("/users/:id/set_password", authed, uh.SetPassword)

	api.GET("/activity-logs", perm(roles.AuditView), rc.ActivityHandler.List)

	admin := api.Group("/admin", ag.RequireAdmin())
	admin.GET("/profiles", rc.AdminHandler.Profiles)
	admin.GET("/roles", rc.AdminHandler.Roles)
	admin.POST("/users/:id/role", rc.AdminHandler.AssignRole)

	// Sites
	sh := rc.SiteHandler
	api.GET("/sites", authed, sh.List)
	api.GET("/sites/:id", authed, sh.Get)
	api.POST("/sites", perm(roles.SiteAdd), sh.Create)
	api.PUT("/sites/:id", perm(roles.SiteChange), sh.Update)
	api.PATCH("/sites/:id", perm(roles.SiteChange), sh.Update)
	api.DELETE("/sites/:id", perm(roles.SiteDelete), sh.Delete)
	api.POST("/sites/:id/log_operation", perm(roles.SiteLogOperation), sh.LogOperation)
	api.GET("/sites/:id/operations", authed, sh.Operations)
	api.GET("/sites/:id/statistics", authed, sh.Statistics)

	// Extractions and stocks
	eh := rc.ExtractionHandler
	api.GET("/extractions", authed, eh.List)
	api.GET("/extractions/by_site", authed, eh.BySite)
	api.GET("/extractions/:id", authed, eh.Get)
	api.POST("/extractions", perm(roles.ExtractionAdd), eh.Create)
	api.PUT("/extractions/:id", perm(roles.ExtractionChange), eh.Update)
	api.PATCH("/extractions/:id", perm(roles.ExtractionChange), eh.Update)
	api.DELETE("/extractions/:id", perm(roles.ExtractionDelete), eh.Delete)
	api.GET("/stocks", authed, eh.Stocks)
	api.GET("/stocks/:id", authed, eh.Stock)

	// Trucks
	kh := rc.TruckHandler
	api.GET("/trucks", authed, kh.List)
	api.GET("/trucks/:id", authed, kh.Get)
	api.POST("/trucks", perm(roles.TruckAdd), kh.Create)
	api.PUT("/trucks/:id", perm(roles.TruckChange), kh.Update)
	api.PATCH("/trucks/:id", perm(roles.TruckChange), kh.Update)
	api.DELETE("/trucks/:id", perm(roles.TruckDelete), kh.Delete)

	// Transports
	th := rc.TransportHandler
	api.GET("/transports", authed, th.List)
	api.GET("/transports/:id", authed, th.Get)
	api.POST("/transports", perm(roles.TransportAdd), th.Create)
	api.PUT("/transports/:id", perm(roles.TransportChange), th.Update)
	api.PATCH("/transports/:id", perm(roles.TransportChange), th.Update)
	api.DELETE("/transports/:id", perm(roles.TransportDelete), th.Delete)
	api.POST("/transports/record_departure", perm(roles.TransportUpdateStatus), th.RecordDeparture)
	api.POST("/transports/record_arrival", perm(roles.TransportUpdateStatus), th.RecordArrival)
	api.POST("/transports/:id/cancel", perm(roles.TransportChange), th.Cancel)
	api.GET("/transports/:id/locations", authed, th.Locations)
	api.POST("/transports/:id/locations", perm(roles.TransportUpdateStatus), th.AddLocation)

	// Exports. Approve and reject check the customs role in the service,
	// after the export lookup.
	xh := rc.ExportHandler
	api.GET("/exports", authed, xh.List)
	api.GET("/exports/:id", authed, xh.Get)
	api.POST("/exports", perm(roles.ExportAdd), xh.Create)
	api.PUT("/exports/:id", perm(roles.ExportChange), xh.Update)
	api.PATCH("/exports/:id", perm(roles.ExportChange), xh.Update)
	api.DELETE("/exports/:id", perm(roles.ExportDelete), xh.Delete)
	api.POST("/exports/:id/approve", authed, xh.Approve())
	api.POST("/exports/:id/reject", authed, xh.Reject())
	api.POST("/exports/:id/ship", perm(roles.ExportChange), xh.Ship())
	api.POST("/exports/:id/deliver", perm(roles.ExportChange), xh.Deliver())
	api.POST("/exports/:id/upload_document", perm(roles.ExportUploadDocument), xh.UploadDocument)
	api.GET("/exports/:id/documents", authed, xh.Documents)

	// Environment
	vh := rc.EnvironmentHandler
	api.GET("/environment/measures", authed, vh.ListMeasures)
	api.GET("/environment/measures/:id", authed, vh.GetMeasure)
	api.POST("/environment/measures", perm(roles.EnvironmentAddMeasure), vh.CreateMeasure)
	api.GET("/environment/alerts", authed, vh.ListAlerts)
	api.GET("/environment/alerts/:id", authed, vh.GetAlert)
	api.POST("/environment/alerts/:id/resolve", perm(roles.EnvironmentAddAlert), vh.ResolveAlert)
	api.POST("/environment/alerts/:id/acknowledge", perm(roles.EnvironmentAddAlert), vh.AcknowledgeAlert)
	api.GET("/environment/thresholds", authed, vh.ListThresholds)
	api.GET("/environment/thresholds/:id", authed, vh.GetThreshold)
	api.POST("/environment/thresholds", perm(roles.EnvironmentThresholds), vh.CreateThreshold)
	api.PUT("/environment/thresholds/:id", perm(roles.EnvironmentThresholds), vh.UpdateThreshold)
	api.PATCH("/environment/thresholds/:id", perm(roles.EnvironmentThresholds), vh.UpdateThreshold)
	api.DELETE("/environment/thresholds/:id", perm(roles.EnvironmentThresholds), vh.DeleteThreshold)

	// Notifications are scoped to the caller.
	nh := rc.NotificationHandler
	api.GET("/notifications", authed, nh.List)
	api.GET("/notifications/unread", authed, nh.Unread)
	api.GET("/notifications/count_unread", authed, nh.CountUnread)
	api.POST("/notifications/mark_all_as_read", authed, nh.MarkAllAsRead)
	api.GET("/notifications/:id", authed, nh.Get)
	api.POST("/notifications/:id/mark_as_read", authed, nh.MarkAsRead)
	api.GET("/email-notifications", perm(roles.AuditView), nh.ListEmails)
	api.POST("/email-notifications/:id/resend", perm(roles.AuditView), nh.ResendEmail)

	// Dashboard metrics and reports
	api.GET("/dashboard/metrics", authed, dh.ListMetrics)
	api.GET("/dashboard/metrics/summary", authed, dh.Summary)
	api.POST("/dashboard/metrics/refresh", perm(roles.ReportGenerate), dh.RefreshMetrics)
	api.GET("/dashboard/metrics/:id", authed, dh.GetMetric)
	api.GET("/dashboard/reports", authed, dh.ListReports)
	api.POST("/dashboard/reports/generate_extraction_report", perm(roles.ReportGenerate), dh.GenerateExtractionReport)
	api.POST("/dashboard/reports/generate_export_report", perm(roles.ReportGenerate), dh.GenerateExportReport)
	api.GET("/dashboard/reports/:id", authed, dh.GetReport)
	api.DELETE("/dashboard/reports/:id", perm(roles.ReportGenerate), dh.DeleteReport)
	api.GET("/dashboard/reports/:id/download", authed, dh.DownloadReport)

	return r
}
