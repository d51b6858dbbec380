// Package dbtest opens migrated and seeded in-memory SQLite databases for tests.
package dbtest

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/db"
)

// New returns a database private to t, with the schema migrated and the
// role profiles seeded.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(sqlite.Open("file:" + name + "?mode=memory&cache=shared"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Seed(conn, config.AppConfig{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return conn
}
