// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"productcatalog/internal/db"
)

// Open returns a migrated database in t's temp dir, closed on cleanup.
// A single connection keeps sqlite from locking itself out inside
// transactions.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	gdb, err := db.OpenDialector(sqlite.Open(path+"?_foreign_keys=on"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
