package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie carrying the admin session token
const SessionCookieName = "faac_admin"

var (
	ErrMissingSession = errors.New("missing session token")
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("session expired")
)

// SessionSigner issues and verifies HMAC-signed admin session tokens.
type SessionSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionSigner creates a signer. An empty secret gets a random per-process key,
// which invalidates sessions on restart.
func NewSessionSigner(secret string, ttl time.Duration) *SessionSigner {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = []byte(uuid.New().String())
	}
	return &SessionSigner{secret: key, ttl: ttl}
}

// TTL returns the session lifetime
func (s *SessionSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token for subject valid until now+ttl.
func (s *SessionSigner) Sign(subject string, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	payload := fmt.Sprintf("%s:%d", subject, expires)
	raw := fmt.Sprintf("%s:%s", payload, s.mac(payload))
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Verify checks the token signature and expiry and returns its subject.
func (s *SessionSigner) Verify(token string, now time.Time) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingSession
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return "", ErrInvalidSession
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad expiry", ErrInvalidSession)
	}

	expected, _ := hex.DecodeString(s.mac(parts[0] + ":" + parts[1]))
	provided, err := hex.DecodeString(parts[2])
	if err != nil || !hmac.Equal(expected, provided) {
		return "", ErrInvalidSession
	}
	if now.Unix() > expires {
		return "", ErrExpiredSession
	}
	return parts[0], nil
}

func (s *SessionSigner) mac(payload string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(payload))
	return hex.EncodeToString(m.Sum(nil))
}

// CheckPassword compares a submitted password with the configured one in constant time.
// An unset password never matches.
func CheckPassword(configured, submitted string) bool {
	if configured == "" {
		return false
	}
	a := sha256.Sum256([]byte(configured))
	b := sha256.Sum256([]byte(submitted))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
