package logger

import (
	"log/slog"
	"strings"
)

// hashedSecretPrefix marks an argon2id PHC string. Such values are masked
// under any key.
const hashedSecretPrefix = "$argon2id$"

// Attribute keys containing any of these are redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"key",
	"sid",
	"cookie",
	"credential",
	"auth",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if strings.HasPrefix(v, hashedSecretPrefix) {
			return slog.String(a.Key, hashedSecretPrefix+"***")
		}
		if v != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}
	return a
}

// RedactString shortens an invitation key or session id to a hint that can
// be logged under a non-sensitive key and still correlate log lines.
func RedactString(value string) string {
	if strings.HasPrefix(value, hashedSecretPrefix) {
		return hashedSecretPrefix + "***"
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***"
}

// IsSensitiveKey reports whether an attribute key names sensitive content.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
