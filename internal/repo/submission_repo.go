// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the immutable
// Submission audit trail.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
)

// CreateSubmission inserts one immutable Submission row capturing the raw
// payload and validation outcome of an inbound form POST.
func CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) (*domain.Submission, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// AttachSubmissionContact links a submission to the contact that was resolved
// after the row was written.
func AttachSubmissionContact(ctx context.Context, db *gorm.DB, submissionID, contactID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ?", submissionID).
		Update("contact_id", contactID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateSubmissionStatus rewrites a submission's outcome status. Used to flip
// an accepted row to server_error when a downstream write fails after the
// row was recorded.
func UpdateSubmissionStatus(ctx context.Context, db *gorm.DB, submissionID, status string) error {
	res := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("id = ?", submissionID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountSubmissions returns the total number of submissions.
func CountSubmissions(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Count(&total).Error
	return total, err
}

// CountSubmissionsByStatus returns the number of submissions with the given
// outcome status.
func CountSubmissionsByStatus(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("status = ?", status).
		Count(&total).Error
	return total, err
}

// ListSubmissionsPage returns a paginated slice of submissions ordered by
// creation time descending.
func ListSubmissionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
