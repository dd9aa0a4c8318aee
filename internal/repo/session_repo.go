// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model.
//
// Sessions are looked up externally by their opaque token string. Status
// mutation helpers perform a single atomic row update; concurrent validate
// calls on the same token therefore resolve last-writer-wins without any
// application-level locking (see services.SessionService).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
)

// CreateSession inserts a new Session row with a generated UUID primary key
// and UTC timestamps. The caller supplies token, claims JWT, expiry, and
// request metadata.
func CreateSession(ctx context.Context, db *gorm.DB, s *domain.Session) (*domain.Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = now
	}
	if s.Status == "" {
		s.Status = domain.SessionPending
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetLiveSessionByToken fetches the session for a token string among the
// non-terminal statuses {pending, active}, preloading its contact. Unknown
// tokens and sessions already completed or expired yield ErrNotFound.
func GetLiveSessionByToken(ctx context.Context, db *gorm.DB, tokenString string) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Preload("Contact").
		Where("session_token = ? AND status IN ?", tokenString, []string{domain.SessionPending, domain.SessionActive}).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession fetches a single session by ID, or ErrNotFound if missing.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Preload("Contact").
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionStatus sets the status of a session in one atomic update.
// If no rows are affected it returns ErrNotFound.
func UpdateSessionStatus(ctx context.Context, db *gorm.DB, id, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TouchSession refreshes last_activity in one atomic update.
func TouchSession(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Update("last_activity", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompleteSession marks a session completed and records the completion time
// in a single update.
func CompleteSession(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       domain.SessionCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountSessions returns the total number of sessions.
func CountSessions(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Session{}).
		Count(&total).Error
	return total, err
}

// CountSessionsByStatus returns the number of sessions with the given status.
func CountSessionsByStatus(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("status = ?", status).
		Count(&total).Error
	return total, err
}

// ListSessionsPage returns a paginated slice of sessions ordered by creation
// time descending, with contacts preloaded. The caller computes offset and
// limit (e.g., (page-1)*pageSize).
func ListSessionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Session, error) {
	var out []domain.Session
	err := db.WithContext(ctx).
		Preload("Contact").
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
