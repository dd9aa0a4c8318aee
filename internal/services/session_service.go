// Package services – SessionService
//
// This file implements the session lifecycle: creation, validation,
// authorization (the caller-facing validate step that also re-verifies the
// signed token and promotes pending sessions), and completion.
//
// Expiry is evaluated lazily at read time against the stored expires_at and
// persisted as a side effect; the signed token's embedded expiry is checked
// independently on Authorize, and either check tripping is sufficient to
// expire the session. Status transitions are single atomic row updates, so
// concurrent validations of the same token resolve last-writer-wins.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// session identifiers and outcomes.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/token"
)

// sessionTokenBytes is the entropy of the opaque session token before
// encoding. 32 bytes encodes to a 43-character url-safe string.
const sessionTokenBytes = 32

// SessionService coordinates session persistence with the token codec.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Codec mints and verifies the signed handoff tokens. Its TTL also
	// determines the stored session lifetime; both expiries are set
	// identically at creation and checked independently afterwards.
	Codec *token.Codec
	// Audit receives lifecycle events; may be nil in tests.
	Audit *AuditService

	// Now supplies the clock; nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// Create mints a fresh session for the contact: a crypto-random opaque token,
// a signed JWT with an identical expiry, and a pending row in the store. A
// store write failure is fatal and surfaced to the caller.
func (s *SessionService) Create(ctx context.Context, contact *domain.Contact, workspace string, meta RequestMeta) (*domain.Session, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("contact.id", contact.ID)),
	)
	defer span.End()

	opaque, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.Codec.Mint(token.Claims{
		UserID:       contact.ID,
		SessionToken: opaque,
		Name:         contact.Name,
		Email:        contact.Email,
		Workspace:    workspace,
	})
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ContactID:    contact.ID,
		SessionToken: opaque,
		JWTToken:     signed,
		Status:       domain.SessionPending,
		Workspace:    workspace,
		ExpiresAt:    expiresAt,
		LastActivity: s.now(),
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	}
	if _, err := repo.CreateSession(ctx, s.DB, sess); err != nil {
		return nil, err
	}
	sess.Contact = *contact

	s.Audit.Record(ctx, sess.ID, domain.AuditInfo, "session_created",
		"chat session created for "+contact.Email,
		map[string]any{"contact_id": contact.ID, "workspace_slug": workspace},
		meta)

	return sess, nil
}

// Validate looks up the session for an opaque token among the live statuses
// {pending, active} and applies the lazy expiry check.
//
// Failure modes:
//   - ErrSessionNotFound: unknown token, or session already terminal.
//   - ErrSessionExpired: the stored expiry has passed; the row is persisted
//     as expired before returning.
//
// On success the session's last_activity is refreshed and the session is
// returned with its status unchanged. Validate never promotes pending to
// active; that is Authorize's job.
func (s *SessionService) Validate(ctx context.Context, opaque string) (*domain.Session, error) {
	sess, err := repo.GetLiveSessionByToken(ctx, s.DB, opaque)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	now := s.now()
	if sess.ExpiredAt(now) {
		if uerr := repo.UpdateSessionStatus(ctx, s.DB, sess.ID, domain.SessionExpired); uerr != nil {
			return nil, uerr
		}
		sess.Status = domain.SessionExpired
		s.Audit.Record(ctx, sess.ID, domain.AuditInfo, "session_expired",
			"session lapsed past its stored expiry", nil, RequestMeta{})
		return nil, ErrSessionExpired
	}

	if err := repo.TouchSession(ctx, s.DB, sess.ID, now); err != nil {
		return nil, err
	}
	sess.LastActivity = now
	return sess, nil
}

// Authorize is the endpoint-facing validation: the stored-record check of
// Validate, then an independent verification of the signed token, then the
// pending→active promotion.
//
// The two expiry guards run in fixed order and the first failure wins. Both
// expiries are set identically at issuance, so the second check can only trip
// first under clock skew between signing and verification; it is kept as
// deliberate defense-in-depth. When the signed token fails verification the
// session is forced to expired even though the stored row had not lapsed,
// and ErrTokenExpired is returned.
func (s *SessionService) Authorize(ctx context.Context, opaque string) (*domain.Session, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Authorize")
	defer span.End()

	sess, err := s.Validate(ctx, opaque)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	if _, verr := s.Codec.Verify(sess.JWTToken); verr != nil {
		if uerr := repo.UpdateSessionStatus(ctx, s.DB, sess.ID, domain.SessionExpired); uerr != nil {
			return nil, uerr
		}
		sess.Status = domain.SessionExpired
		s.Audit.Record(ctx, sess.ID, domain.AuditWarning, "token_expired",
			"signed token failed verification before stored expiry", nil, RequestMeta{})
		return nil, ErrTokenExpired
	}

	if sess.Status == domain.SessionPending {
		if err := repo.UpdateSessionStatus(ctx, s.DB, sess.ID, domain.SessionActive); err != nil {
			return nil, err
		}
		sess.Status = domain.SessionActive
		s.Audit.Record(ctx, sess.ID, domain.AuditInfo, "session_activated",
			"session promoted to active", nil, RequestMeta{})
	}

	return sess, nil
}

// MarkCompleted transitions a session to completed and records the
// completion time.
//
// Calling it on an already-completed session is a no-op. Calling it on an
// expired session returns ErrSessionTerminal so the caller can flag the
// logic error; the stored data is left untouched either way.
func (s *SessionService) MarkCompleted(ctx context.Context, sess *domain.Session) error {
	switch sess.Status {
	case domain.SessionCompleted:
		return nil
	case domain.SessionExpired:
		return ErrSessionTerminal
	}

	now := s.now()
	if err := repo.CompleteSession(ctx, s.DB, sess.ID, now); err != nil {
		return err
	}
	sess.Status = domain.SessionCompleted
	sess.CompletedAt = &now

	s.Audit.Record(ctx, sess.ID, domain.AuditInfo, "session_completed",
		"session marked completed", nil, RequestMeta{})
	return nil
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// newSessionToken returns a fresh unguessable token: sessionTokenBytes of
// crypto-random entropy, url-safe base64 encoded without padding.
func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
