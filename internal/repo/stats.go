// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) and the admin stats endpoint.
// Each function is context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
)

// SubmissionsStats returns aggregate metadata for the submissions table: the
// total number of rows and the greatest CreatedAt among them. When the table
// is empty, count is 0 and maxCreatedAt is nil. Used for weak ETags on the
// admin listing.
func SubmissionsStats(ctx context.Context, db *gorm.DB) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Submission{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// IntakeStats aggregates the counters reported by the admin stats endpoint.
type IntakeStats struct {
	Contacts           int64 `json:"contacts"`
	Sessions           int64 `json:"sessions"`
	ActiveSessions     int64 `json:"active_sessions"`
	CompletedSessions  int64 `json:"completed_sessions"`
	ExpiredSessions    int64 `json:"expired_sessions"`
	Submissions        int64 `json:"submissions"`
	FailedSubmissions  int64 `json:"failed_submissions"`
	LimitedSubmissions int64 `json:"rate_limited_submissions"`
}

// CollectIntakeStats runs the count queries behind the admin stats endpoint.
func CollectIntakeStats(ctx context.Context, db *gorm.DB) (*IntakeStats, error) {
	var st IntakeStats
	var err error

	if st.Contacts, err = CountContacts(ctx, db); err != nil {
		return nil, err
	}
	if st.Sessions, err = CountSessions(ctx, db); err != nil {
		return nil, err
	}
	if st.ActiveSessions, err = CountSessionsByStatus(ctx, db, domain.SessionActive); err != nil {
		return nil, err
	}
	if st.CompletedSessions, err = CountSessionsByStatus(ctx, db, domain.SessionCompleted); err != nil {
		return nil, err
	}
	if st.ExpiredSessions, err = CountSessionsByStatus(ctx, db, domain.SessionExpired); err != nil {
		return nil, err
	}
	if st.Submissions, err = CountSubmissions(ctx, db); err != nil {
		return nil, err
	}
	if st.FailedSubmissions, err = CountSubmissionsByStatus(ctx, db, domain.SubmissionValidationError); err != nil {
		return nil, err
	}
	if st.LimitedSubmissions, err = CountSubmissionsByStatus(ctx, db, domain.SubmissionRateLimited); err != nil {
		return nil, err
	}
	return &st, nil
}
