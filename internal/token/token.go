// Package token issues and verifies the signed, expiring links used to
// unsubscribe from schedule updates.
//
// A token carries the subscriber's address and the time it was issued, both
// base64url encoded, followed by an HMAC-SHA256 over the two. The HMAC key is
// derived from the application secret with PBKDF2 and a purpose-specific salt,
// so the same secret can sign other things without tokens being interchangeable.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// TTL is how long an unsubscribe token stays valid after issuance
	TTL = 7 * 24 * time.Hour

	// UnsubscribeSalt separates unsubscribe tokens from other uses of the secret
	UnsubscribeSalt = "unsubscribe-salt"

	iterations = 100000
	keySize    = 32
)

var (
	// ErrExpired is returned for a correctly signed token older than TTL
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned for a malformed or tampered token
	ErrInvalid = errors.New("token invalid")
)

var encoding = base64.RawURLEncoding

// Signer issues and verifies tokens
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures a Signer
type Option func(*Signer)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// WithTTL overrides the default token lifetime
func WithTTL(ttl time.Duration) Option {
	return func(s *Signer) {
		s.ttl = ttl
	}
}

// NewSigner creates a signer keyed by secret and salt.
// Returns nil if secret is empty.
func NewSigner(secret, salt string, opts ...Option) *Signer {
	if secret == "" {
		return nil
	}

	s := &Signer{
		key: pbkdf2.Key([]byte(secret), []byte(salt), iterations, keySize, sha256.New),
		ttl: TTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue returns a token for email stamped with the current time
func (s *Signer) Issue(email string) string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(s.now().Unix()))

	payload := encoding.EncodeToString([]byte(email)) + "." + encoding.EncodeToString(ts[:])
	return payload + "." + encoding.EncodeToString(s.sign(payload))
}

// Verify checks tok and returns the email it was issued for.
// The signature is checked before the age, so a tampered token is always
// ErrInvalid even when it is also old.
func (s *Signer) Verify(tok string) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return "", ErrInvalid
	}

	sig, err := encoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalid
	}
	if !hmac.Equal(sig, s.sign(parts[0]+"."+parts[1])) {
		return "", ErrInvalid
	}

	email, err := encoding.DecodeString(parts[0])
	if err != nil || len(email) == 0 {
		return "", ErrInvalid
	}
	ts, err := encoding.DecodeString(parts[1])
	if err != nil || len(ts) != 8 {
		return "", ErrInvalid
	}

	issued := time.Unix(int64(binary.BigEndian.Uint64(ts)), 0)
	age := s.now().Sub(issued)
	if age < 0 {
		return "", ErrInvalid
	}
	if age > s.ttl {
		return "", ErrExpired
	}

	return string(email), nil
}

func (s *Signer) sign(payload string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
