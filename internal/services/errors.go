// Package services defines the business logic for submission intake, session
// lifecycle, and audit logging. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"sort"
	"strings"
)

// Session-related errors.
var (
	// ErrSessionNotFound indicates the presented token matches no live
	// session: it is unknown, or the session is already terminal.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the stored expiry instant has
	// passed. The session is persisted as expired before this is returned.
	ErrSessionExpired = errors.New("session expired")

	// ErrTokenExpired is returned when the signed token fails its independent
	// verification even though the stored row had not yet lapsed. The session
	// is forced to expired before this is returned.
	ErrTokenExpired = errors.New("signed token expired")

	// ErrSessionTerminal is returned when completion is requested for a
	// session that already expired; callers should flag it as a logic error.
	ErrSessionTerminal = errors.New("session already terminal")

	// ErrRateLimited is returned by the intake when a client exceeds the
	// per-IP submission ceiling.
	ErrRateLimited = errors.New("rate limited")
)

// FieldErrors is the validation failure carrier: one or more reasons per
// offending field. It implements error so Submit can return it directly.
type FieldErrors map[string][]string

// Add appends a reason for a field.
func (f FieldErrors) Add(field, reason string) {
	f[field] = append(f[field], reason)
}

// Error renders a compact, deterministic summary (fields sorted).
func (f FieldErrors) Error() string {
	if len(f) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// AsFieldErrors unwraps err into FieldErrors when it is one.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
