// Package domain defines the persistence models for contacts, chat sessions,
// form submissions, and audit events. These types are mapped with GORM and
// form the core data layer of the prechat backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Session status values. Transitions are monotonic:
// pending → active → completed, with pending/active → expired once the
// expiry instant has passed. Completed and expired are terminal.
const (
	SessionPending   = "pending"
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionExpired   = "expired"
)

// Submission status values recorded for every inbound form POST.
const (
	SubmissionSuccess         = "success"
	SubmissionValidationError = "validation_error"
	SubmissionRateLimited     = "rate_limited"
	SubmissionServerError     = "server_error"
)

// Audit event severity levels.
const (
	AuditDebug   = "debug"
	AuditInfo    = "info"
	AuditWarning = "warning"
	AuditError   = "error"
)

// Contact is a deduplicated visitor identity record keyed by email.
// A re-submission with a known email updates the mutable fields in place
// instead of creating a duplicate row.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique dedup key, stored lower-cased.
//   - Name / Phone / Country / Message: visitor-supplied details; phone,
//     country, and message are optional.
//   - IPAddress / UserAgent: client metadata captured at last submission.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (administrative purge only).
type Contact struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string         `json:"email"      gorm:"type:varchar(254);not null;uniqueIndex:ux_contacts_email"`
	Phone     string         `json:"phone,omitempty"   gorm:"type:varchar(20)"`
	Country   string         `json:"country,omitempty" gorm:"type:varchar(100)"`
	Message   string         `json:"message,omitempty" gorm:"type:text"`
	IPAddress string         `json:"-"          gorm:"type:varchar(45)"`
	UserAgent string         `json:"-"          gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// Session is a single chat-handoff credential owned by exactly one Contact.
// The opaque SessionToken is the external lookup key; JWTToken is a redundant
// signed encoding of the same claims presented to the downstream chat service.
//
// ExpiresAt is fixed at creation and never extended. A session whose current
// time exceeds ExpiresAt must be treated as expired even if the stored status
// has not yet been updated; expiry is evaluated lazily at read time and then
// persisted (see EffectiveStatus).
type Session struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	ContactID    string         `json:"contact_id"    gorm:"type:char(36);not null;index:idx_contact_sessions"`
	SessionToken string         `json:"session_token" gorm:"type:varchar(255);not null;uniqueIndex:ux_sessions_token"`
	JWTToken     string         `json:"jwt_token"     gorm:"type:text;not null"`
	Status       string         `json:"status"        gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','active','completed','expired')"`
	Workspace    string         `json:"workspace_slug" gorm:"type:varchar(255)"`
	ExpiresAt    time.Time      `json:"expires_at"    gorm:"not null;index"`
	LastActivity time.Time      `json:"last_activity"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	IPAddress    string         `json:"-"             gorm:"type:varchar(45)"`
	UserAgent    string         `json:"-"             gorm:"type:text"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`

	// Contact is the owning identity. Sessions are cascade-deleted if their
	// contact is removed.
	Contact Contact `json:"-" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Terminal reports whether the session status admits no further transitions.
func (s *Session) Terminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionExpired
}

// ExpiredAt reports whether the session's expiry instant has passed at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// EffectiveStatus returns the status the session should be treated as having
// at now: expired once the expiry instant has passed (regardless of the
// stored value, unless already completed), the stored status otherwise.
func (s *Session) EffectiveStatus(now time.Time) string {
	if s.Status != SessionCompleted && s.ExpiredAt(now) {
		return SessionExpired
	}
	return s.Status
}

// Submission is an append-only audit entry for one inbound form POST. It
// captures the raw payload and validation outcome, and is linked to the
// resolved Contact after the fact when resolution succeeded. Rows are never
// deleted by the application; the only mutations are the contact attachment
// and flipping an accepted row to server_error when a later write fails.
type Submission struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	ContactID *string        `json:"contact_id,omitempty" gorm:"type:char(36);index"`
	Payload   string         `json:"payload" gorm:"type:text;not null"`   // raw submitted fields, JSON
	Errors    string         `json:"errors,omitempty" gorm:"type:text"`   // field→reasons map, JSON
	Status    string         `json:"status"  gorm:"type:varchar(20);not null;check:status IN ('success','validation_error','rate_limited','server_error')"`
	IPAddress string         `json:"-"       gorm:"type:varchar(45);not null"`
	UserAgent string         `json:"-"       gorm:"type:text"`
	Referer   string         `json:"-"       gorm:"type:varchar(2048)"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`

	Contact *Contact `json:"-" gorm:"foreignKey:ContactID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Submission.
func (Submission) TableName() string { return "submissions" }

// AuditEvent is an append-only structured log entry written by the services
// for observability. Events are write-only from the application's view; a
// failed write never fails the operation that produced it.
type AuditEvent struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID *string        `json:"session_id,omitempty" gorm:"type:char(36);index"`
	Level     string         `json:"level"      gorm:"type:varchar(10);not null;check:level IN ('debug','info','warning','error')"`
	EventType string         `json:"event_type" gorm:"type:varchar(100);not null;index"`
	Message   string         `json:"message"    gorm:"type:text;not null"`
	Data      string         `json:"data,omitempty" gorm:"type:text"` // structured context payload, JSON
	IPAddress string         `json:"-"          gorm:"type:varchar(45)"`
	UserAgent string         `json:"-"          gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	Session *Session `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AuditEvent.
func (AuditEvent) TableName() string { return "audit_events" }
