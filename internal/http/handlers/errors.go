// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic error code constants carried in the
// `error_code` field of failure envelopes (via the `fail()` helper in this
// package). These codes give embedding clients a stable, machine-readable
// taxonomy that supplements human-readable messages and HTTP statuses.
//
// Conventions:
//   - Codes are UPPER_SNAKE_CASE, matching what the embeddable form widget
//     already branches on.
//   - INVALID_SESSION covers both unknown tokens and sessions that are
//     already terminal, deliberately not distinguishing the two to avoid
//     leaking token existence.
//   - SERVER_ERROR is the only code for internal failures; no internal
//     detail accompanies it.
//
// Example response:
//
//	{
//	  "success": false,
//	  "message": "Session has expired",
//	  "error_code": "TOKEN_EXPIRED"
//	}
package handlers

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInvalidSession   = "INVALID_SESSION"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeMissingToken     = "MISSING_TOKEN"
	ErrCodeServerError      = "SERVER_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)
