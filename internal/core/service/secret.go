package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters used by HashSecret.
const (
	argon2Time    = 2
	argon2Memory  = 16 * 1024
	argon2Threads = 2
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

const argon2Prefix = "$argon2id$"

// AdminSecret checks operator passwords against the configured secret.
//
// The configured value is either the plaintext secret or an argon2id hash
// in PHC form ($argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>) as produced
// by HashSecret.
type AdminSecret struct {
	value  string
	hashed bool
}

// NewAdminSecret wraps a configured secret. An empty value means admin
// login is not configured.
func NewAdminSecret(value string) *AdminSecret {
	return &AdminSecret{
		value:  value,
		hashed: strings.HasPrefix(value, argon2Prefix),
	}
}

// Configured reports whether a secret is set.
func (s *AdminSecret) Configured() bool {
	return s != nil && s.value != ""
}

// Hashed reports whether the secret is stored as an argon2id hash.
func (s *AdminSecret) Hashed() bool {
	return s != nil && s.hashed
}

// Verify reports whether password matches the secret.
func (s *AdminSecret) Verify(password string) bool {
	if !s.Configured() {
		return false
	}
	if s.hashed {
		return verifyArgon2Hash(password, s.value)
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.value)) == 1
}

// HashSecret derives an argon2id PHC string for secret.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(secret), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2Hash verifies secret against a PHC string, honoring the
// parameters recorded in it.
func verifyArgon2Hash(secret, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}

	computed := argon2.IDKey([]byte(secret), salt, time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
