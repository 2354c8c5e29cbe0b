package handler

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/yndnr/pagegate-go/internal/core/service"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OKResponse is the body of login and logout.
type OKResponse struct {
	OK bool `json:"ok"`
}

// TokenResponse is returned by token create and update.
type TokenResponse struct {
	OK bool `json:"ok"`
	service.TokenView
}

// DeleteTokenResponse is returned by token delete.
type DeleteTokenResponse struct {
	OK  bool   `json:"ok"`
	Key string `json:"key"`
}

// ListTokensResponse is returned by token list.
type ListTokensResponse struct {
	Items        []service.TokenView `json:"items"`
	ListComplete bool                `json:"list_complete"`
	Cursor       *string             `json:"cursor"`
}

// ============================================================================
// Lenient body parsing
// ============================================================================

// body is a decoded JSON object. Keys map to their raw values.
type body map[string]json.RawMessage

// readBody decodes r's body as a JSON object. Anything else yields an
// empty body.
func readBody(w http.ResponseWriter, r *http.Request) body {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return body{}
	}
	var b body
	if err := json.Unmarshal(data, &b); err != nil || b == nil {
		return body{}
	}
	return b
}

// has reports whether key is present, whatever its value.
func (b body) has(key string) bool {
	_, ok := b[key]
	return ok
}

// stringField returns key when it holds a JSON string.
func (b body) stringField(key string) (string, bool) {
	raw, ok := b[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// boolField returns key when it holds a JSON boolean.
func (b body) boolField(key string) (bool, bool) {
	raw, ok := b[key]
	if !ok {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	return v, true
}

// numberField returns key when it holds a finite JSON number.
func (b body) numberField(key string) (float64, bool) {
	raw, ok := b[key]
	if !ok {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// positive returns key when it holds a number greater than zero, else 0.
func (b body) positive(key string) float64 {
	if v, ok := b.numberField(key); ok && v > 0 {
		return v
	}
	return 0
}

// isNullOrZero reports whether key holds null or the number 0.
func (b body) isNullOrZero(key string) bool {
	raw, ok := b[key]
	if !ok {
		return false
	}
	if strings.TrimSpace(string(raw)) == "null" {
		return true
	}
	v, ok := b.numberField(key)
	return ok && v == 0
}

// truthy applies loose truthiness to key: absent, null, false, 0 and ""
// are false; everything else, objects and arrays included, is true.
func (b body) truthy(key string) bool {
	raw, ok := b[key]
	if !ok {
		return false
	}
	switch v := strings.TrimSpace(string(raw)); v {
	case "null", "false", `""`:
		return false
	case "true":
		return true
	}
	if n, ok := b.numberField(key); ok {
		return n != 0
	}
	if s, ok := b.stringField(key); ok {
		return s != ""
	}
	return true
}

// ============================================================================
// Query parsing
// ============================================================================

// parseLimit reads a leading base-10 integer the way lenient clients send
// it: leading space and a sign are accepted and parsing stops at the first
// non-digit. Unparseable or non-positive input yields 0, which the token
// service replaces with its default.
func parseLimit(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		digits++
		if n < service.MaxListLimit*10 {
			n = n*10 + int(c-'0')
		}
	}
	if digits == 0 || neg {
		return 0
	}
	return n
}
