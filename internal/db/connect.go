package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/logger"
)

const retryDelay = 2 * time.Second

// Dialector picks the gorm driver for cfg.Driver.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open opens a connection with the options shared by every driver.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// Connect opens the configured database, retrying while it is not yet
// reachable (e.g. Postgres still starting).
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Info("Connecting to database", "driver", cfg.Driver, "host", cfg.Host, "port", cfg.Port, "dbname", cfg.DBName)

	retries := uint64(max(cfg.ConnectRetries, 1))
	attempt := 0
	var conn *gorm.DB
	backoff := retry.WithMaxRetries(retries-1, retry.NewConstant(retryDelay))
	err = retry.Do(ctx, backoff, func(_ context.Context) error {
		attempt++
		db, openErr := Open(dialector)
		if openErr == nil {
			openErr = ping(db)
		}
		if openErr != nil {
			log.Warn("Database connection attempt failed", "attempt", attempt, "max", retries, "error", openErr)
			return retry.RetryableError(openErr)
		}
		conn = db
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return conn, nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
