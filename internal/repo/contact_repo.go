// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contact
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a contact is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateContact inserts a new Contact row. The contact ID is a randomly
// generated UUID (string) and CreatedAt is set to UTC. Email uniqueness is
// enforced by the ux_contacts_email index; callers dedup via GetContactByEmail
// first (see services.IntakeService).
func CreateContact(ctx context.Context, db *gorm.DB, c *domain.Contact) (*domain.Contact, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetContactByEmail fetches the contact for the given (lower-cased) email.
// If no row exists, it returns ErrNotFound.
func GetContactByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContact fetches a single contact by ID, or ErrNotFound if missing.
func GetContact(ctx context.Context, db *gorm.DB, id string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContact persists the mutable fields of an existing contact (name,
// phone, country, message, client metadata). The email key is never changed
// by this call. If no rows are affected, it returns ErrNotFound.
func UpdateContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error {
	res := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"name":       c.Name,
			"phone":      c.Phone,
			"country":    c.Country,
			"message":    c.Message,
			"ip_address": c.IPAddress,
			"user_agent": c.UserAgent,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountContacts returns the total number of contacts.
func CountContacts(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Count(&total).Error
	return total, err
}
