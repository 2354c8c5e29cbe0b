// Package cookie reads and writes the session cookies used by the gate.
//
// Parsing is deliberately lenient: the Cookie header is split on ';' and
// '=' without the RFC 6265 validation performed by net/http, so that any
// value a browser sends back can be looked up. Writing goes through
// http.Cookie.
package cookie

import (
	"net/http"
	"net/url"
	"strings"
)

// Parse decodes a Cookie header into a name → value map.
//
// Each ';'-separated part is trimmed and split on '='. The value is the
// second segment; anything after a further '=' is dropped. Names and values
// are percent-decoded, falling back to the raw text when decoding fails.
// Parts with an empty name are skipped and later duplicates win.
func Parse(header string) map[string]string {
	out := make(map[string]string)
	if header == "" {
		return out
	}
	for _, part := range strings.Split(header, ";") {
		segments := strings.Split(strings.TrimSpace(part), "=")
		name := decode(segments[0])
		if name == "" {
			continue
		}
		value := ""
		if len(segments) > 1 {
			value = decode(segments[1])
		}
		out[name] = value
	}
	return out
}

// Get returns the named cookie from r, or "" when absent.
func Get(r *http.Request, name string) string {
	return Parse(strings.Join(r.Header.Values("Cookie"), "; "))[name]
}

func decode(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return v
}

// encode percent-encodes everything outside the unreserved set, so that
// '=', ';' and spaces survive a round trip through Parse.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Spec describes how a session cookie is written.
type Spec struct {
	Name string

	// MaxAge is the lifetime in seconds sent on Set.
	MaxAge int

	// Secure adds the Secure attribute. Only plain-http development
	// setups turn it off.
	Secure bool
}

// Cookie builds the cookie carrying value.
func (s Spec) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    encode(value),
		Path:     "/",
		MaxAge:   s.MaxAge,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired builds the cookie that clears this one.
func (s Spec) Expired() *http.Cookie {
	c := s.Cookie("")
	c.MaxAge = -1
	return c
}

// Set appends a Set-Cookie header carrying value.
func (s Spec) Set(h http.Header, value string) {
	h.Add("Set-Cookie", s.Cookie(value).String())
}

// Clear appends a Set-Cookie header that removes the cookie.
func (s Spec) Clear(h http.Header) {
	h.Add("Set-Cookie", s.Expired().String())
}
