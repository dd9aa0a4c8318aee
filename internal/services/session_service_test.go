package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/token"
)

func newServicesDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
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
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newSessionService wires a SessionService over a fresh database with a
// one-hour token TTL and a controllable clock shared by codec and service.
func newSessionService(t *testing.T, at time.Time) (*SessionService, *time.Time) {
	t.Helper()

	now := at
	codec, err := token.NewCodec("test-secret-0123456789", "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	codec.Now = func() time.Time { return now }

	db := newServicesDB(t)
	svc := &SessionService{
		DB:    db,
		Codec: codec,
		Audit: &AuditService{DB: db},
		Now:   func() time.Time { return now },
	}
	return svc, &now
}

func seedContact(t *testing.T, db *gorm.DB, email string) *domain.Contact {
	t.Helper()
	c, err := repo.CreateContact(context.Background(), db, &domain.Contact{
		Name:  "John Doe",
		Email: email,
	})
	if err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	return c
}

func TestSessionCreate(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "support", RequestMeta{IP: "1.2.3.4", UserAgent: "ua"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Status != domain.SessionPending {
		t.Fatalf("status = %q, want pending", sess.Status)
	}
	if len(sess.SessionToken) != 43 {
		t.Fatalf("opaque token length = %d, want 43", len(sess.SessionToken))
	}
	if !sess.ExpiresAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("expires_at = %v, want %v", sess.ExpiresAt, start.Add(time.Hour))
	}
	if sess.Contact.ID != contact.ID {
		t.Fatalf("contact not attached to result")
	}

	// The signed token must round-trip and carry the same identity.
	cl, err := svc.Codec.Verify(sess.JWTToken)
	if err != nil {
		t.Fatalf("Verify minted token: %v", err)
	}
	if cl.UserID != contact.ID || cl.SessionToken != sess.SessionToken || cl.Workspace != "support" {
		t.Fatalf("claims mismatch: %+v", cl)
	}
	if !cl.ExpiresAt.Time.Equal(sess.ExpiresAt) {
		t.Fatalf("token expiry %v differs from stored %v", cl.ExpiresAt.Time, sess.ExpiresAt)
	}

	events, err := repo.ListAuditEventsForSession(context.Background(), svc.DB, sess.ID, 10)
	if err != nil {
		t.Fatalf("list audit events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "session_created" {
		t.Fatalf("expected one session_created event, got %+v", events)
	}
}

func TestSessionValidate_TouchesActivity(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	*now = start.Add(10 * time.Minute)
	got, err := svc.Validate(context.Background(), sess.SessionToken)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Status != domain.SessionPending {
		t.Fatalf("Validate must not promote; status = %q", got.Status)
	}
	if !got.LastActivity.Equal(*now) {
		t.Fatalf("last_activity = %v, want %v", got.LastActivity, *now)
	}
}

func TestSessionValidate_UnknownToken(t *testing.T) {
	svc, _ := newSessionService(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	if _, err := svc.Validate(context.Background(), "no-such-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Validate(unknown) = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionValidate_LazyExpiry(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// One second past the one-hour TTL.
	*now = start.Add(3601 * time.Second)
	if _, err := svc.Validate(context.Background(), sess.SessionToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Validate past expiry = %v, want ErrSessionExpired", err)
	}

	stored, err := repo.GetSession(context.Background(), svc.DB, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != domain.SessionExpired {
		t.Fatalf("stored status = %q, want expired", stored.Status)
	}

	// A terminal session is indistinguishable from an unknown token afterwards.
	if _, err := svc.Validate(context.Background(), sess.SessionToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Validate after expiry persisted = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionValidate_ExpiryInstantCounts(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, now := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Exactly at expires_at the session is already expired.
	*now = start.Add(time.Hour)
	if _, err := svc.Validate(context.Background(), sess.SessionToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Validate at expiry instant = %v, want ErrSessionExpired", err)
	}
}

func TestSessionAuthorize_PromotesPending(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Authorize(context.Background(), sess.SessionToken)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if got.Status != domain.SessionActive {
		t.Fatalf("status = %q, want active", got.Status)
	}
	stored, err := repo.GetSession(context.Background(), svc.DB, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != domain.SessionActive {
		t.Fatalf("stored status = %q, want active", stored.Status)
	}

	// A second authorize is stable: still active, no error.
	again, err := svc.Authorize(context.Background(), sess.SessionToken)
	if err != nil {
		t.Fatalf("second Authorize: %v", err)
	}
	if again.Status != domain.SessionActive {
		t.Fatalf("second Authorize status = %q, want active", again.Status)
	}
}

func TestSessionAuthorize_BadSignedToken(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Corrupt the stored signed token while the row itself is still live.
	if err := svc.DB.Model(&domain.Session{}).Where("id = ?", sess.ID).
		Update("jwt_token", "not-a-valid-token").Error; err != nil {
		t.Fatalf("corrupt jwt_token: %v", err)
	}

	if _, err := svc.Authorize(context.Background(), sess.SessionToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Authorize with bad signed token = %v, want ErrTokenExpired", err)
	}
	stored, err := repo.GetSession(context.Background(), svc.DB, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != domain.SessionExpired {
		t.Fatalf("stored status = %q, want expired", stored.Status)
	}
}

func TestMarkCompleted(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.MarkCompleted(context.Background(), sess); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if sess.Status != domain.SessionCompleted || sess.CompletedAt == nil {
		t.Fatalf("session not completed in memory: %+v", sess)
	}
	stored, err := repo.GetSession(context.Background(), svc.DB, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if stored.Status != domain.SessionCompleted || stored.CompletedAt == nil {
		t.Fatalf("session not completed in store: %+v", stored)
	}

	// Completing twice is a no-op.
	if err := svc.MarkCompleted(context.Background(), sess); err != nil {
		t.Fatalf("second MarkCompleted: %v", err)
	}
}

func TestMarkCompleted_ExpiredIsTerminal(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newSessionService(t, start)
	contact := seedContact(t, svc.DB, "john@example.com")

	sess, err := svc.Create(context.Background(), contact, "", RequestMeta{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sess.Status = domain.SessionExpired

	if err := svc.MarkCompleted(context.Background(), sess); !errors.Is(err, ErrSessionTerminal) {
		t.Fatalf("MarkCompleted on expired = %v, want ErrSessionTerminal", err)
	}
}
