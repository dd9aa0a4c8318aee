// Prechat HTTP handlers.
//
// This file exposes the public REST endpoints of the capture-and-handoff flow:
//   - POST /prechat/submit            (form intake, mints a session)
//   - POST /prechat/validate-session  (token validation + activation)
//   - POST /prechat/initiate-chat     (handoff URL for a live session)
//   - GET  /health                    (liveness probe)
//
// Handlers are transport-thin:
//   - bind & echo inputs, extracting client metadata (IP, user agent, referer)
//   - delegate to application services (IntakeService, SessionService)
//   - translate service errors into the stable error-code taxonomy
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// submission exists for (email, key), the handler returns the originally
// issued session and sets `Idempotency-Replayed: true` instead of minting a
// second credential.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prechat-backend/internal/domain"
	"github.com/tbourn/go-prechat-backend/internal/repo"
	"github.com/tbourn/go-prechat-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IntakeService defines the submission pipeline consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type IntakeService interface {
	// Submit runs rate limiting, validation, contact dedup, and session
	// minting for one form POST.
	Submit(ctx context.Context, in services.SubmitInput, meta services.RequestMeta) (*services.SubmitResult, error)
}

// SessionService defines the session lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SessionService interface {
	// Validate checks the stored record only: lookup among live statuses and
	// the lazy expiry check. It never promotes pending sessions.
	Validate(ctx context.Context, sessionToken string) (*domain.Session, error)
	// Authorize additionally verifies the signed token and promotes
	// pending sessions to active.
	Authorize(ctx context.Context, sessionToken string) (*domain.Session, error)
}

//
// Handler wiring
//

// Handlers groups the public prechat endpoints. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	intake   IntakeService
	sessions SessionService
	idemTTL  time.Duration

	// Now supplies the clock for idempotency expiry checks. Nil means time.Now.
	Now func() time.Time
}

// New constructs and returns a Handlers instance bound to the given services.
// idemTTL is how long a stored Idempotency-Key keeps replaying the original
// session; a non-positive value falls back to 24 hours.
func New(intake IntakeService, sessions SessionService, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{intake: intake, sessions: sessions, idemTTL: idemTTL}
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// clientMeta captures the request metadata the services persist alongside
// contacts, submissions, and audit events.
func clientMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.GetHeader("Referer"),
	}
}

//
// DTOs
//

// SubmitRequest is the JSON payload of the prechat form.
//
// No binding constraints are declared here: field-level validation lives in
// the intake service so that failures come back as the field→reasons map the
// form widget renders, not as a single bind error.
type SubmitRequest struct {
	Name      string `json:"name" example:"John Doe"`
	Email     string `json:"email" example:"john@example.com"`
	Phone     string `json:"phone,omitempty" example:"+1 (555) 010-7788"`
	Country   string `json:"country,omitempty" example:"United Kingdom"`
	Message   string `json:"message,omitempty" example:"I have a billing question."`
	Workspace string `json:"workspace_slug,omitempty" example:"support"`
	ReturnURL string `json:"return_url,omitempty" example:"https://example.com/chat"`
}

// SubmitData is the success payload of POST /prechat/submit.
type SubmitData struct {
	SessionToken string   `json:"session_token"`
	JWTToken     string   `json:"jwt_token"`
	UserID       string   `json:"user_id"`
	ChatURL      string   `json:"chat_url"`
	ExpiresAt    string   `json:"expires_at" example:"2026-01-02T15:04:05Z"`
	UserInfo     UserInfo `json:"user_info"`
}

// UserInfo is the contact summary echoed in success payloads.
type UserInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	UserID string `json:"user_id,omitempty"`
}

// ValidateSessionRequest is the JSON payload for session validation.
type ValidateSessionRequest struct {
	// SessionToken is the opaque token issued at submission time.
	SessionToken string `json:"session_token" binding:"required" example:"2kq02kniJ2WGkyGZQ7AJkfTq1tS5VBfWgVf0Ml0XW0M"`
}

// ValidateSessionData is the success payload of POST /prechat/validate-session.
type ValidateSessionData struct {
	SessionID string   `json:"session_id"`
	UserInfo  UserInfo `json:"user_info"`
	Workspace string   `json:"workspace_slug"`
	ExpiresAt string   `json:"expires_at"`
	Status    string   `json:"status"`
}

// InitiateChatRequest is the JSON payload for chat initiation.
type InitiateChatRequest struct {
	SessionToken string `json:"session_token" example:"2kq02kniJ2WGkyGZQ7AJkfTq1tS5VBfWgVf0Ml0XW0M"`
}

// InitiateChatData is the success payload of POST /prechat/initiate-chat.
// ChatURL embeds the signed token, not the opaque one, since the downstream
// chat service verifies the claims without a store lookup.
type InitiateChatData struct {
	ChatURL   string   `json:"chat_url"`
	SessionID string   `json:"session_id"`
	Workspace string   `json:"workspace_slug"`
	UserInfo  UserInfo `json:"user_info"`
}

//
// Handlers
//

// Submit godoc
// @ID          submitPrechatForm
// @Summary     Submit the prechat form
// @Description Validates the visitor's contact details, deduplicates the contact by
// @Description email, mints a chat session credential, and returns the handoff URL.
// @Description Supports idempotency via the Idempotency-Key header (same key → same session).
// @Tags        Prechat
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SubmitRequest  true  "Form payload"
//
// @Success     201  {object}  handlers.APIResponse  "Session issued"
// @Failure     400  {object}  handlers.APIResponse  "Validation failed"
// @Failure     429  {object}  handlers.APIResponse  "Rate limited"
// @Failure     500  {object}  handlers.APIResponse  "Internal error"
// @Router      /prechat/submit [post]
func (h *Handlers) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "request body must be valid JSON")
		return
	}

	meta := clientMeta(c)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Idempotency (replay path) – read validated key if present.
	idemKey := idempotencyKey(c)
	if idemKey != "" && email != "" {
		if svc, okSvc := h.intake.(*services.IntakeService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, email, idemKey, h.now().UTC()); err == nil && rec != nil {
				if data, err2 := h.replaySubmission(ctx, svc, rec.SessionID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, rec.Status, "Form submitted successfully", data)
					return
				}
			}
		}
	}

	res, err := h.intake.Submit(ctx, services.SubmitInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Country:   req.Country,
		Message:   req.Message,
		Workspace: req.Workspace,
		ReturnURL: req.ReturnURL,
	}, meta)
	if err != nil {
		if ferrs, isFields := services.AsFieldErrors(err); isFields {
			failFields(c, "Form validation failed", ferrs)
			return
		}
		switch err {
		case services.ErrRateLimited:
			fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests. Please try again later.")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while processing your request")
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.intake.(*services.IntakeService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, res.Contact.Email, idemKey, res.Session.ID, http.StatusCreated, h.idemTTL)
		}
	}

	ok(c, http.StatusCreated, "Form submitted successfully", SubmitData{
		SessionToken: res.Session.SessionToken,
		JWTToken:     res.Session.JWTToken,
		UserID:       res.Contact.ID,
		ChatURL:      res.ChatURL,
		ExpiresAt:    res.Session.ExpiresAt.UTC().Format(time.RFC3339),
		UserInfo: UserInfo{
			Name:  res.Contact.Name,
			Email: res.Contact.Email,
		},
	})
}

// ValidateSession godoc
// @ID          validateSession
// @Summary     Validate a session token
// @Description Checks the stored session and the signed token, promotes pending
// @Description sessions to active, and returns the session summary.
// @Tags        Prechat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ValidateSessionRequest  true  "Session token"
//
// @Success     200  {object}  handlers.APIResponse  "Session is valid"
// @Failure     400  {object}  handlers.APIResponse  "Malformed request"
// @Failure     401  {object}  handlers.APIResponse  "Invalid or expired session"
// @Failure     500  {object}  handlers.APIResponse  "Internal error"
// @Router      /prechat/validate-session [post]
func (h *Handlers) ValidateSession(c *gin.Context) {
	ctx := c.Request.Context()

	var req ValidateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failFields(c, "Invalid request data", map[string][]string{
			"session_token": {"This field is required."},
		})
		return
	}

	sess, err := h.sessions.Authorize(ctx, req.SessionToken)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusUnauthorized, ErrCodeInvalidSession, "Invalid session token")
		case services.ErrSessionExpired:
			fail(c, http.StatusUnauthorized, ErrCodeInvalidSession, "Session has expired")
		case services.ErrTokenExpired:
			fail(c, http.StatusUnauthorized, ErrCodeTokenExpired, "Session has expired")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while validating session")
		}
		return
	}

	ok(c, http.StatusOK, "Session is valid", ValidateSessionData{
		SessionID: sess.ID,
		UserInfo: UserInfo{
			Name:   sess.Contact.Name,
			Email:  sess.Contact.Email,
			UserID: sess.Contact.ID,
		},
		Workspace: sess.Workspace,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
		Status:    sess.Status,
	})
}

// InitiateChat godoc
// @ID          initiateChat
// @Summary     Initiate the chat handoff
// @Description Returns the downstream chat URL with the signed token embedded,
// @Description for a session that is still live.
// @Tags        Prechat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.InitiateChatRequest  true  "Session token"
//
// @Success     200  {object}  handlers.APIResponse  "Chat initiated"
// @Failure     400  {object}  handlers.APIResponse  "Missing token"
// @Failure     401  {object}  handlers.APIResponse  "Invalid or expired session"
// @Failure     500  {object}  handlers.APIResponse  "Internal error"
// @Router      /prechat/initiate-chat [post]
func (h *Handlers) InitiateChat(c *gin.Context) {
	ctx := c.Request.Context()

	var req InitiateChatRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.SessionToken) == "" {
		fail(c, http.StatusBadRequest, ErrCodeMissingToken, "Session token is required")
		return
	}

	sess, err := h.sessions.Validate(ctx, req.SessionToken)
	if err != nil {
		switch err {
		case services.ErrSessionNotFound:
			fail(c, http.StatusUnauthorized, ErrCodeInvalidSession, "Invalid session token")
		case services.ErrSessionExpired:
			fail(c, http.StatusUnauthorized, ErrCodeInvalidSession, "Session has expired")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeServerError, "An error occurred while initiating chat")
		}
		return
	}

	workspace := sess.Workspace
	base := "http://localhost:3001"
	if svc, okSvc := h.intake.(*services.IntakeService); okSvc {
		if svc.ChatBaseURL != "" {
			base = svc.ChatBaseURL
		}
		if workspace == "" {
			workspace = svc.DefaultWorkspace
		}
	}
	chatURL := strings.TrimRight(base, "/") + "/embed/" + workspace + "?token=" + sess.JWTToken

	if svc, okSvc := h.sessions.(*services.SessionService); okSvc {
		svc.Audit.Record(ctx, sess.ID, domain.AuditInfo, "chat_initiated",
			"chat initiated for "+sess.Contact.Email,
			map[string]any{"workspace_slug": workspace}, clientMeta(c))
	}

	ok(c, http.StatusOK, "Chat initiated successfully", InitiateChatData{
		ChatURL:   chatURL,
		SessionID: sess.ID,
		Workspace: workspace,
		UserInfo: UserInfo{
			Name:  sess.Contact.Name,
			Email: sess.Contact.Email,
		},
	})
}

// Health godoc
// @ID          healthCheck
// @Summary     Liveness probe
// @Tags        System
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "Prechat Form API",
		"version": "1.0.0",
	})
}

// replaySubmission rebuilds the submit payload for a previously issued
// session so idempotent retries return the original credential.
func (h *Handlers) replaySubmission(ctx context.Context, svc *services.IntakeService, sessionID string) (*SubmitData, error) {
	sess, err := repo.GetSession(ctx, svc.DB, sessionID)
	if err != nil {
		return nil, err
	}
	contact, err := repo.GetContact(ctx, svc.DB, sess.ContactID)
	if err != nil {
		return nil, err
	}

	workspace := sess.Workspace
	if workspace == "" {
		workspace = svc.DefaultWorkspace
	}
	chatURL := strings.TrimRight(svc.ChatBaseURL, "/") + "/embed/" + workspace + "?token=" + sess.SessionToken

	return &SubmitData{
		SessionToken: sess.SessionToken,
		JWTToken:     sess.JWTToken,
		UserID:       contact.ID,
		ChatURL:      chatURL,
		ExpiresAt:    sess.ExpiresAt.UTC().Format(time.RFC3339),
		UserInfo: UserInfo{
			Name:  contact.Name,
			Email: contact.Email,
		},
	}, nil
}

// idempotencyKey extracts the idempotency key if an upstream middleware has
// already validated/stashed it. The fallback behavior reads the
// "Idempotency-Key" header directly when no dedicated middleware exists.
func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}
