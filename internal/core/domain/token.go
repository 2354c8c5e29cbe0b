package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf16"
)

// MaxTokenKeyLength is the longest accepted invitation key, counted in
// UTF-16 code units.
const MaxTokenKeyLength = 128

// Duration conversions for token expiry.
const (
	MillisPerMinute = 60 * 1000
	MillisPerDay    = 24 * 60 * MillisPerMinute
)

// Token is an invitation token keyed by its own string value.
//
// ExpiresInMs is a duration. It becomes an absolute timestamp only on the
// Session created at redemption; the token never stores one.
type Token struct {
	Active      *bool  `json:"active,omitempty"`
	Used        *bool  `json:"used,omitempty"`
	ExpiresInMs *int64 `json:"expiresInMs,omitempty"`
}

// NewToken creates an unused token.
func NewToken(active bool, expiresInMs int64) *Token {
	t := &Token{}
	t.SetActive(active)
	t.SetUsed(false)
	t.SetExpiresIn(expiresInMs)
	return t
}

// IsActive reports whether the token is active. Absent means active.
func (t *Token) IsActive() bool {
	return t.Active == nil || *t.Active
}

// IsUsed reports whether the token has been redeemed.
func (t *Token) IsUsed() bool {
	return t.Used != nil && *t.Used
}

// Redeemable reports whether the token may be exchanged for a session.
func (t *Token) Redeemable() bool {
	return t.IsActive() && !t.IsUsed()
}

// SetActive sets the active flag.
func (t *Token) SetActive(v bool) {
	t.Active = &v
}

// SetUsed sets the used flag.
func (t *Token) SetUsed(v bool) {
	t.Used = &v
}

// SetExpiresIn stores a duration in milliseconds. Zero or negative clears it.
func (t *Token) SetExpiresIn(ms int64) {
	if ms <= 0 {
		t.ExpiresInMs = nil
		return
	}
	t.ExpiresInMs = &ms
}

// ExpiresIn returns the stored duration in milliseconds, or 0.
func (t *Token) ExpiresIn() int64 {
	if t.ExpiresInMs == nil {
		return 0
	}
	return *t.ExpiresInMs
}

// Clone returns a deep copy.
func (t *Token) Clone() *Token {
	c := &Token{}
	if t.Active != nil {
		c.SetActive(*t.Active)
	}
	if t.Used != nil {
		c.SetUsed(*t.Used)
	}
	if t.ExpiresInMs != nil {
		c.SetExpiresIn(*t.ExpiresInMs)
	}
	return c
}

// Validate checks optional fields.
func (t *Token) Validate() error {
	if t.ExpiresInMs != nil && *t.ExpiresInMs <= 0 {
		return fmt.Errorf("%w: expiresInMs must be positive", ErrRecordMalformed)
	}
	return nil
}

// DecodeToken unmarshals and validates a stored token.
func DecodeToken(data []byte) (*Token, error) {
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// NormalizeTokenKey trims key and checks it is usable as a token key.
// Whitespace is the ECMAScript set: U+FEFF counts, U+0085 does not.
func NormalizeTokenKey(key string) (string, error) {
	key = strings.TrimFunc(key, isKeySpace)
	if key == "" || len(utf16.Encode([]rune(key))) > MaxTokenKeyLength {
		return "", ErrInvalidKey
	}
	if strings.IndexFunc(key, isKeySpace) >= 0 {
		return "", ErrInvalidKey
	}
	return key, nil
}

func isKeySpace(r rune) bool {
	return r == '\uFEFF' || (unicode.IsSpace(r) && r != '\u0085')
}

// MinutesToMillis converts a positive minute count to milliseconds.
func MinutesToMillis(minutes float64) int64 {
	return roundMillis(minutes * MillisPerMinute)
}

// DaysToMillis converts a positive day count to milliseconds.
func DaysToMillis(days float64) int64 {
	return roundMillis(days * MillisPerDay)
}

// roundMillis keeps sub-millisecond positive durations at 1ms so that a
// positive input never reads back as "no expiry". Durations beyond the
// int64 range saturate.
func roundMillis(ms float64) int64 {
	if math.IsNaN(ms) || ms <= 0 {
		return 0
	}
	if ms >= math.MaxInt64 {
		return math.MaxInt64
	}
	return max(int64(math.Round(ms)), 1)
}
