// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only AuditEvent writer and
// a small reader used by the admin listing API.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
)

// CreateAuditEvent appends one audit event row. Callers that must not fail on
// audit errors (all of them, per the audit contract) go through
// services.AuditService, which swallows the returned error.
func CreateAuditEvent(ctx context.Context, db *gorm.DB, ev *domain.AuditEvent) (*domain.AuditEvent, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

// ListAuditEventsForSession returns the newest events recorded for a session,
// capped at limit.
func ListAuditEventsForSession(ctx context.Context, db *gorm.DB, sessionID string, limit int) ([]domain.AuditEvent, error) {
	var out []domain.AuditEvent
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
