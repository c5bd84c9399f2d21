// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"testing"

	"gorm.io/gorm"

	"github.com/sirdesai22/certify-service/internal/db"
)

// New returns an in-memory sqlite database with the full schema.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}
