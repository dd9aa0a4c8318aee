package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-prechat-backend/internal/domain"
)

func newAuditRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("audit_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateAuditEvent_Error_NoTable(t *testing.T) {
	db := newAuditRepoDB(t /* no migrations */)
	ev, err := CreateAuditEvent(context.Background(), db, &domain.AuditEvent{
		Level:     domain.AuditInfo,
		EventType: "form_submitted",
		Message:   "x",
	})
	if err == nil || ev != nil {
		t.Fatalf("expected error creating without table, got ev=%v err=%v", ev, err)
	}
}

func TestCreateAuditEvent_Success(t *testing.T) {
	db := newAuditRepoDB(t, &domain.AuditEvent{})

	start := time.Now().UTC().Add(-time.Minute)
	ev, err := CreateAuditEvent(context.Background(), db, &domain.AuditEvent{
		Level:     domain.AuditInfo,
		EventType: "session_created",
		Message:   "session created",
		Data:      `{"workspace":"support"}`,
		IPAddress: "1.2.3.4",
	})
	if err != nil {
		t.Fatalf("CreateAuditEvent: %v", err)
	}
	if ev.ID == "" || ev.CreatedAt.Before(start) {
		t.Fatalf("defaults not filled: id=%q created=%v", ev.ID, ev.CreatedAt)
	}
}

func TestListAuditEventsForSession(t *testing.T) {
	db := newAuditRepoDB(t, &domain.AuditEvent{})

	sid := "sess-1"
	other := "sess-2"
	for i := 0; i < 3; i++ {
		if _, err := CreateAuditEvent(context.Background(), db, &domain.AuditEvent{
			SessionID: &sid,
			Level:     domain.AuditInfo,
			EventType: fmt.Sprintf("event_%d", i),
			Message:   "m",
			CreatedAt: time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC),
		}); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	if _, err := CreateAuditEvent(context.Background(), db, &domain.AuditEvent{
		SessionID: &other,
		Level:     domain.AuditInfo,
		EventType: "noise",
		Message:   "m",
	}); err != nil {
		t.Fatalf("seed other session: %v", err)
	}

	out, err := ListAuditEventsForSession(context.Background(), db, sid, 2)
	if err != nil {
		t.Fatalf("ListAuditEventsForSession: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2 (capped)", len(out))
	}
	if out[0].EventType != "event_2" || out[1].EventType != "event_1" {
		t.Fatalf("unexpected order: %s, %s", out[0].EventType, out[1].EventType)
	}
}
