// Package token implements the signed-credential codec used for chat
// handoff. A Codec mints and verifies time-limited HMAC-signed JWTs carrying
// the session's identity claims. It is a pure function of (claims, secret,
// clock) and never consults persistent storage; the session store is the
// authority on stored state, the codec on the token itself.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrExpired is returned by Verify when the embedded expiry has passed.
	ErrExpired = errors.New("token expired")

	// ErrMalformed is returned by Verify for any structural, signature, or
	// algorithm mismatch.
	ErrMalformed = errors.New("token malformed")
)

// Claims is the payload minted into a handoff JWT. SessionToken is the
// opaque store key, duplicated into the signed token so the downstream chat
// service can correlate without a callback.
type Claims struct {
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Workspace    string `json:"workspace_slug,omitempty"`
	jwt.RegisteredClaims
}

// Codec mints and verifies signed session tokens. Construct with NewCodec so
// the algorithm is resolved and misconfiguration fails at process start.
//
// The zero Now field means time.Now; tests inject a fixed clock.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration

	// Now supplies the clock for minting and verification.
	Now func() time.Time
}

// NewCodec validates the signing configuration and returns a ready Codec.
// An empty secret or an unsupported algorithm is a configuration error and
// should abort startup.
func NewCodec(secret, algorithm string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret must not be empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	m := jwt.GetSigningMethod(algorithm)
	if m == nil {
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", algorithm)
	}
	if _, ok := m.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token: algorithm %q is not an HMAC method", algorithm)
	}
	return &Codec{secret: []byte(secret), method: m, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint signs the given claims with the configured secret and TTL, filling in
// IssuedAt and ExpiresAt from the codec clock. It returns the compact token
// string and the expiry instant embedded in it.
func (c *Codec) Mint(cl Claims) (string, time.Time, error) {
	now := c.now().UTC()
	exp := now.Add(c.ttl)
	cl.IssuedAt = jwt.NewNumericDate(now)
	cl.ExpiresAt = jwt.NewNumericDate(exp)
	cl.Subject = cl.UserID

	signed, err := jwt.NewWithClaims(c.method, cl).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a token string, returning its claims.
//
// It fails with ErrExpired when the current time is at or after the embedded
// expiry, and with ErrMalformed for everything else: bad structure, wrong
// signature, or a signing algorithm other than the configured one.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	cl := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, cl, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != c.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithValidMethods([]string{c.method.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	if !tok.Valid {
		return nil, ErrMalformed
	}
	return cl, nil
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
