// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints.
// Every response, success or failure, is wrapped in the same APIResponse
// envelope so embedding clients can branch on `success` and `error_code`
// without inspecting HTTP status codes first.
//
// Conventions:
//   - All error responses carry a stable upper-snake `error_code`
//     (see errors.go constants) and a human-readable `message`.
//   - `fail()` centralizes error formatting and ensures 5xx responses are
//     logged with request context for observability.
//   - `failFields()` is the validation variant carrying the field→reasons map.
//   - `ok()` writes the success envelope around a data payload.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "success": false,
//	  "message": "Too many requests. Please try again later.",
//	  "error_code": "RATE_LIMITED"
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "success": true, "message": "Form submitted successfully", "data": { ... } }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-prechat-backend/internal/http/middleware"
)

// APIResponse is the uniform envelope returned by all endpoints.
//
// Fields:
//   - Success: true on the happy path, false on every failure.
//   - Message: human-readable outcome description, safe to show to users.
//   - ErrorCode: stable, machine-readable code, set on failures only.
//   - Errors: field→reasons map, set on validation failures only.
//   - Data: endpoint-specific payload, set on success only.
//   - RequestID: correlation ID echoed from X-Request-ID, when present.
type APIResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message,omitempty" example:"Form submitted successfully"`
	ErrorCode string              `json:"error_code,omitempty" example:"VALIDATION_ERROR"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Data      any                 `json:"data,omitempty"`
	RequestID string              `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// fail aborts the request with a failure envelope.
//
// Server errors (>=500) are logged using the request-scoped logger from
// middleware; the caller-facing message never leaks internal detail, so any
// diagnostic context must go into the log line instead.
func fail(c *gin.Context, status int, code, msg string) {
	resp := APIResponse{
		Success:   false,
		Message:   msg,
		ErrorCode: code,
		RequestID: c.Writer.Header().Get("X-Request-ID"),
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("error_code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail().
//
// External packages (e.g., router setup) should call Fail to return
// consistent envelopes without directly depending on unexported helpers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFields aborts with a 400 validation envelope carrying the per-field
// reasons alongside the VALIDATION_ERROR code.
func failFields(c *gin.Context, msg string, errs map[string][]string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, APIResponse{
		Success:   false,
		Message:   msg,
		ErrorCode: ErrCodeValidation,
		Errors:    errs,
		RequestID: c.Writer.Header().Get("X-Request-ID"),
	})
}

// ok writes a success envelope around data with the given HTTP status.
func ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, APIResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
