// Package services – AuditService
//
// This file implements the append-only audit trail writer. Writes are
// fire-and-forget: a failure to record an audit event must never fail the
// operation that produced it, so errors are swallowed here and reported only
// to the zerolog diagnostic logger.
package services

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/repo"
)

// RequestMeta carries the client metadata captured at the HTTP boundary and
// threaded through the services for persistence and audit context.
type RequestMeta struct {
	IP        string
	UserAgent string
	Referer   string
}

// AuditService appends structured events to the audit_events table.
type AuditService struct {
	// DB is the GORM handle used for audit writes.
	DB *gorm.DB
}

// Record appends one audit event. sessionID may be empty for events not tied
// to a session. data, when non-nil, is JSON-encoded into the event's context
// payload; encoding failures degrade to an empty payload rather than losing
// the event.
//
// Record never returns an error. Persistence failures are logged at warn
// level and otherwise ignored.
func (a *AuditService) Record(ctx context.Context, sessionID, level, eventType, message string, data any, meta RequestMeta) {
	if a == nil || a.DB == nil {
		return
	}

	ev := &domain.AuditEvent{
		Level:     level,
		EventType: eventType,
		Message:   message,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if sessionID != "" {
		ev.SessionID = &sessionID
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			ev.Data = string(b)
		}
	}

	if _, err := repo.CreateAuditEvent(ctx, a.DB, ev); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", eventType).
			Msg("audit event write failed")
	}
}
