// Package storagetest opens throwaway in-memory stores for tests.
package storagetest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"kiitcms/backend/internal/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Clock is a settable time source. Each call to Tick advances it by one second.
type Clock struct {
	T time.Time
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Tick() time.Time {
	c.T = c.T.Add(time.Second)
	return c.T
}

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

var dbSeq atomic.Int64

// NewDB opens a fresh migrated sqlite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storagetest_%d?mode=memory&cache=shared", dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := storage.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewService returns a store over NewDB with no Redis, driven by clock.
// Every write advances the clock by one second so createdAt values are distinct.
func NewService(t testing.TB, clock *Clock) *storage.Service {
	t.Helper()
	s := storage.NewStorageService(NewDB(t), nil)
	s.Now = clock.Tick
	return s
}
