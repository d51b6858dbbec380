package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/db"
	"github.com/diewo77/sgm/internal/handlers"
	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/services"
	"github.com/diewo77/sgm/internal/storage"
	"github.com/diewo77/sgm/internal/validation"
)

// App holds the database and the router serving the API.
type App struct {
	db        *gorm.DB
	routerCfg *handlers.RouterConfig
	engine    *gin.Engine
}

// NewApp connects to the database, applies migrations when enabled, seeds
// the role profiles and builds the router.
func NewApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	// Run migrations on startup if enabled
	if cfg.App.Migrations {
		if err := db.Migrate(conn); err != nil {
			return nil, err
		}
		log.Info("Migrations completed")
	}
	// Seed default data (permissions, role profiles)
	if err := db.Seed(conn, cfg.App); err != nil {
		return nil, err
	}
	return newApp(conn, cfg, log)
}

func newApp(conn *gorm.DB, cfg *config.Config, log logger.Logger) (*App, error) {
	store, err := storage.NewDir(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	if !cfg.App.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.UseJSONNames()

	routerCfg, err := handlers.NewRouterConfig(conn, cfg, store, services.LogMailer{Log: log}, log)
	if err != nil {
		return nil, err
	}
	return &App{
		db:        conn,
		routerCfg: routerCfg,
		engine:    handlers.NewRouter(routerCfg),
	}, nil
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.engine
}
