package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Session is a user session created by redeeming an invitation token.
// Timestamps are epoch milliseconds. ExpiresAt is nil for sessions that
// never expire server-side.
type Session struct {
	Token     string `json:"token"`
	CreatedAt int64  `json:"createdAt"`
	LastSeen  int64  `json:"lastSeen"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// NewSession creates a session for token at now. A positive
// expiresInMs is resolved to an absolute ExpiresAt, clamped to MaxInt64.
func NewSession(token string, now int64, expiresInMs int64) *Session {
	s := &Session{
		Token:     token,
		CreatedAt: now,
		LastSeen:  now,
	}
	if expiresInMs > 0 {
		at := int64(math.MaxInt64)
		if expiresInMs <= math.MaxInt64-now {
			at = now + expiresInMs
		}
		s.ExpiresAt = &at
	}
	return s
}

// Touch records activity at now.
func (s *Session) Touch(now int64) {
	s.LastSeen = now
}

// Expired reports whether the session carries an ExpiresAt that now has
// passed. The comparison is strict: a session is still valid at the
// exact millisecond of ExpiresAt.
func (s *Session) Expired(now int64) bool {
	return s.ExpiresAt != nil && now > *s.ExpiresAt
}

// Validate checks required fields.
func (s *Session) Validate() error {
	if s.Token == "" {
		return fmt.Errorf("%w: session token is empty", ErrRecordMalformed)
	}
	if s.CreatedAt <= 0 || s.LastSeen <= 0 {
		return fmt.Errorf("%w: session timestamps missing", ErrRecordMalformed)
	}
	return nil
}

// DecodeSession unmarshals and validates a stored session.
func DecodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// AdminSession is an operator session. It has no expiry field: its
// lifetime is delegated to the store TTL.
type AdminSession struct {
	CreatedAt int64  `json:"createdAt"`
	LastSeen  int64  `json:"lastSeen"`
	IP        string `json:"ip"`
}

// NewAdminSession creates an admin session for ip at now.
func NewAdminSession(ip string, now int64) *AdminSession {
	if ip == "" {
		ip = "unknown"
	}
	return &AdminSession{
		CreatedAt: now,
		LastSeen:  now,
		IP:        ip,
	}
}

// Touch records activity at now.
func (s *AdminSession) Touch(now int64) {
	s.LastSeen = now
}

// Expired always reports false.
func (s *AdminSession) Expired(int64) bool {
	return false
}

// Validate checks required fields.
func (s *AdminSession) Validate() error {
	if s.CreatedAt <= 0 || s.LastSeen <= 0 {
		return fmt.Errorf("%w: admin session timestamps missing", ErrRecordMalformed)
	}
	return nil
}

// DecodeAdminSession unmarshals and validates a stored admin session.
func DecodeAdminSession(data []byte) (*AdminSession, error) {
	var s AdminSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
