// Package services – IntakeService
//
// This file implements the form-submission intake pipeline: per-IP rate
// ceiling, field validation and normalization, the immutable submission
// audit row, contact dedup by email, and session minting with the chat
// handoff URL.
package services

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/ratelimit"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/sysutil"
)

// Field length ceilings enforced during validation.
const (
	maxNameLen     = 255
	minNameLen     = 2
	maxCountryLen  = 100
	maxMessageLen  = 1000
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// emailPattern accepts the practical subset of addresses the form supports.
// Addresses are lower-cased before matching and storage.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// countryTitler normalizes country names to title case ("united kingdom" →
// "United Kingdom"). cases.Caser is not safe for concurrent use, so each
// call takes a fresh one.
func countryTitler() cases.Caser { return cases.Title(language.English) }

// SubmitInput is the raw form payload as received at the HTTP boundary,
// before validation or normalization.
type SubmitInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country,omitempty"`
	Message   string `json:"message,omitempty"`
	Workspace string `json:"workspace_slug,omitempty"`
	ReturnURL string `json:"return_url,omitempty"`
}

// SubmitResult is the successful outcome of a submission: the resolved
// (created or updated) contact, the freshly minted pending session, and the
// fully formed chat handoff URL.
type SubmitResult struct {
	Contact *domain.Contact
	Session *domain.Session
	ChatURL string
}

// IntakeService runs the submission pipeline. All collaborators are wired at
// startup (see http.RegisterRoutes); the zero value is not usable.
type IntakeService struct {
	// DB is the GORM handle used for contact and submission persistence.
	DB *gorm.DB
	// Sessions mints the session credential for accepted submissions.
	Sessions *SessionService
	// Audit receives pipeline events; may be nil in tests.
	Audit *AuditService
	// Limiter enforces the per-IP submission ceiling. Nil disables the check.
	Limiter *ratelimit.Window

	// ChatBaseURL is the downstream chat frontend origin used to build the
	// default handoff URL when the form carries no return_url.
	ChatBaseURL string
	// DefaultWorkspace is used when the form carries no workspace_slug.
	DefaultWorkspace string
}

// Submit runs the full intake pipeline for one form POST.
//
// Ordering is deliberate: the rate ceiling is checked before any validation
// or identity work, so a throttled client learns nothing about field-level
// outcomes and writes nothing but the throttle record. Every non-throttled
// attempt leaves exactly one Submission row whose status reflects the final
// outcome: an accepted row is flipped to server_error if a downstream write
// fails after it was recorded.
//
// Returns ErrRateLimited, a FieldErrors value, or a storage error on
// failure; on success the result carries the contact, session, and chat URL.
func (s *IntakeService) Submit(ctx context.Context, in SubmitInput, meta RequestMeta) (*SubmitResult, error) {
	tr := otel.Tracer("services/IntakeService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("client.ip", meta.IP)),
	)
	defer span.End()

	payload := marshalPayload(in)

	if s.Limiter != nil && !s.Limiter.Allow(meta.IP) {
		s.recordSubmission(ctx, payload, "", domain.SubmissionRateLimited, meta)
		s.Audit.Record(ctx, "", domain.AuditWarning, "rate_limit_exceeded",
			"submission ceiling exceeded for "+meta.IP, nil, meta)
		return nil, ErrRateLimited
	}

	clean, ferrs := validateSubmit(in)
	if len(ferrs) > 0 {
		errsJSON, _ := json.Marshal(ferrs)
		s.recordSubmission(ctx, payload, string(errsJSON), domain.SubmissionValidationError, meta)
		return nil, ferrs
	}
	clean.Workspace = sysutil.FirstNonEmpty(clean.Workspace, s.DefaultWorkspace)

	sub := s.recordSubmission(ctx, payload, "", domain.SubmissionSuccess, meta)

	contact, err := s.resolveContact(ctx, clean, meta)
	if err != nil {
		s.failSubmission(ctx, sub, meta)
		s.Audit.Record(ctx, "", domain.AuditError, "contact_resolution_failed",
			err.Error(), map[string]any{"email": clean.Email}, meta)
		return nil, err
	}
	if sub != nil {
		if err := repo.AttachSubmissionContact(ctx, s.DB, sub.ID, contact.ID); err != nil {
			s.Audit.Record(ctx, "", domain.AuditWarning, "submission_link_failed",
				err.Error(), map[string]any{"submission_id": sub.ID}, meta)
		}
	}

	sess, err := s.Sessions.Create(ctx, contact, clean.Workspace, meta)
	if err != nil {
		s.failSubmission(ctx, sub, meta)
		s.Audit.Record(ctx, "", domain.AuditError, "session_creation_failed",
			err.Error(), map[string]any{"contact_id": contact.ID}, meta)
		return nil, err
	}

	chatURL := buildChatURL(s.ChatBaseURL, clean.Workspace, clean.ReturnURL, sess.SessionToken)

	s.Audit.Record(ctx, sess.ID, domain.AuditInfo, "form_submitted",
		"prechat form accepted for "+contact.Email,
		map[string]any{"workspace_slug": clean.Workspace}, meta)

	span.SetAttributes(attribute.String("session.id", sess.ID))
	return &SubmitResult{Contact: contact, Session: sess, ChatURL: chatURL}, nil
}

// recordSubmission writes the immutable submission row. Like audit writes it
// is best-effort: a failure is logged through the audit trail and the
// pipeline continues, since losing the aggregate row must not block a
// legitimate visitor.
func (s *IntakeService) recordSubmission(ctx context.Context, payload, errsJSON, status string, meta RequestMeta) *domain.Submission {
	sub := &domain.Submission{
		Payload:   payload,
		Errors:    errsJSON,
		Status:    status,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		Referer:   meta.Referer,
	}
	created, err := repo.CreateSubmission(ctx, s.DB, sub)
	if err != nil {
		s.Audit.Record(ctx, "", domain.AuditError, "submission_write_failed",
			err.Error(), nil, meta)
		return nil
	}
	return created
}

// failSubmission flips an accepted submission row to server_error once a
// downstream write has failed, so the recorded outcome matches the response
// the client saw. Best effort, like the original write.
func (s *IntakeService) failSubmission(ctx context.Context, sub *domain.Submission, meta RequestMeta) {
	if sub == nil {
		return
	}
	if err := repo.UpdateSubmissionStatus(ctx, s.DB, sub.ID, domain.SubmissionServerError); err != nil {
		s.Audit.Record(ctx, "", domain.AuditWarning, "submission_update_failed",
			err.Error(), map[string]any{"submission_id": sub.ID}, meta)
	}
}

// resolveContact deduplicates by email: an existing contact is updated in
// place, a new one is created otherwise. Optional fields already on file are
// kept when the new submission leaves them blank.
func (s *IntakeService) resolveContact(ctx context.Context, in SubmitInput, meta RequestMeta) (*domain.Contact, error) {
	existing, err := repo.GetContactByEmail(ctx, s.DB, in.Email)
	switch {
	case err == nil:
		existing.Name = in.Name
		if in.Phone != "" {
			existing.Phone = in.Phone
		}
		if in.Country != "" {
			existing.Country = in.Country
		}
		if in.Message != "" {
			existing.Message = in.Message
		}
		existing.IPAddress = meta.IP
		existing.UserAgent = meta.UserAgent
		if err := repo.UpdateContact(ctx, s.DB, existing); err != nil {
			return nil, err
		}
		return existing, nil

	case err == repo.ErrNotFound:
		c := &domain.Contact{
			Name:      in.Name,
			Email:     in.Email,
			Phone:     in.Phone,
			Country:   in.Country,
			Message:   in.Message,
			IPAddress: meta.IP,
			UserAgent: meta.UserAgent,
		}
		return repo.CreateContact(ctx, s.DB, c)

	default:
		return nil, err
	}
}

// validateSubmit checks and normalizes the form fields. It returns the
// cleaned input plus any accumulated field errors; callers must treat a
// non-empty FieldErrors as a rejection even though the cleaned copy is
// also returned.
func validateSubmit(in SubmitInput) (SubmitInput, FieldErrors) {
	ferrs := FieldErrors{}

	// Length limits count characters, not bytes, so multibyte names and
	// countries are measured the way the form presents them.
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		ferrs.Add("name", "This field is required.")
	case utf8.RuneCountInString(in.Name) < minNameLen:
		ferrs.Add("name", "Name must be at least 2 characters long.")
	case utf8.RuneCountInString(in.Name) > maxNameLen:
		ferrs.Add("name", "Name must be at most 255 characters long.")
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case in.Email == "":
		ferrs.Add("email", "This field is required.")
	case !emailPattern.MatchString(in.Email):
		ferrs.Add("email", "Enter a valid email address.")
	}

	if p := strings.TrimSpace(in.Phone); p != "" {
		digits := digitsOf(p)
		if n := utf8.RuneCountInString(digits); n < minPhoneDigits || n > maxPhoneDigits {
			ferrs.Add("phone", "Phone number must contain 10 to 15 digits.")
		} else {
			in.Phone = digits
		}
	} else {
		in.Phone = ""
	}

	if c := strings.TrimSpace(in.Country); c != "" {
		if utf8.RuneCountInString(c) > maxCountryLen {
			ferrs.Add("country", "Country must be at most 100 characters long.")
		} else {
			in.Country = countryTitler().String(strings.ToLower(c))
		}
	} else {
		in.Country = ""
	}

	in.Message = strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(in.Message) > maxMessageLen {
		ferrs.Add("message", "Message must be at most 1000 characters long.")
	}

	in.Workspace = strings.TrimSpace(in.Workspace)
	in.ReturnURL = strings.TrimSpace(in.ReturnURL)

	if len(ferrs) > 0 {
		return in, ferrs
	}
	return in, nil
}

// digitsOf strips every non-digit rune, so "+1 (555) 010-7788" and
// "15550107788" normalize identically.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// buildChatURL forms the handoff URL the client is redirected to. A caller
// supplied return_url wins, with the session token spliced into its query
// string; otherwise the default embed URL under the chat frontend is used.
// An unparseable return_url falls back to the default rather than failing
// the whole submission.
func buildChatURL(base, workspace, returnURL, sessionToken string) string {
	if returnURL != "" {
		if u, err := url.Parse(returnURL); err == nil && u.Scheme != "" && u.Host != "" {
			q := u.Query()
			q.Set("token", sessionToken)
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	u := strings.TrimRight(base, "/") + "/embed/" + url.PathEscape(workspace)
	return u + "?token=" + url.QueryEscape(sessionToken)
}

// marshalPayload serializes the raw input for the submission audit row.
func marshalPayload(in SubmitInput) string {
	b, err := json.Marshal(in)
	if err != nil {
		return "{}"
	}
	return string(b)
}
