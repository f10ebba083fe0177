package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

func TestMigrateCreatesRitualSchema(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "migrate.db") + "?_busy_timeout=5000"
	svc, err := Open(Config{Driver: DriverSQLite, DSN: dsn}, logger.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })

	if err := Migrate(svc.DB()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Idempotent.
	if err := Migrate(svc.DB()); err != nil {
		t.Fatalf("Migrate(again): %v", err)
	}
	for _, m := range ritual.Models() {
		if !svc.DB().Migrator().HasTable(m) {
			t.Fatalf("missing table for %T", m)
		}
	}

	now := time.Now().UTC()
	bad := ritual.NewProjection(uuid.New(), ritual.FirstFlameSlug, now)
	bad.CurrentDayTarget = ritual.DayCount + 1
	if err := svc.DB().Create(bad).Error; err == nil {
		t.Fatalf("expected day range check to reject target=%d", bad.CurrentDayTarget)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "mysql", DSN: "x"}, logger.NewNop()); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := Open(Config{Driver: DriverSQLite}, logger.NewNop()); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
