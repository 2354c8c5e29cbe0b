package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"
)

// DefaultLength is the number of random bytes in a generated key.
// 18 bytes encode to 24 URL-safe characters.
const DefaultLength = 18

// MaxKeyLength mirrors the server's limit on invitation keys.
const MaxKeyLength = 128

var (
	// ErrInvalidPrefix is returned for prefixes containing whitespace.
	ErrInvalidPrefix = errors.New("token: prefix must not contain whitespace")
	// ErrTooLong is returned when prefix plus body would exceed MaxKeyLength.
	ErrTooLong = errors.New("token: generated key exceeds maximum length")
)

// Generate returns prefix followed by DefaultLength random bytes, Base64
// RawURL encoded. The result is always a valid invitation key.
func Generate(prefix string) (string, error) {
	return GenerateWithLength(prefix, DefaultLength)
}

// GenerateWithLength is Generate with an explicit number of random bytes.
func GenerateWithLength(prefix string, length int) (string, error) {
	if strings.IndexFunc(prefix, unicode.IsSpace) >= 0 {
		return "", ErrInvalidPrefix
	}
	if length < 1 {
		length = DefaultLength
	}
	if len(prefix)+base64.RawURLEncoding.EncodedLen(length) > MaxKeyLength {
		return "", ErrTooLong
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b), nil
}
