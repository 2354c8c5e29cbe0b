// Package httpserver provides the HTTP server for PageGate.
//
// Every request passes the AccessGuard before reaching the endpoints and
// the static site:
//
//   - Public paths and static prefixes are forwarded untouched.
//   - Protected pages need a live user session (sid cookie). The session's
//     lastSeen is refreshed and the cookie re-issued on every success.
//   - The admin namespace needs an admin session (admin_sid cookie), except
//     for the admin login submission and the admin landing page.
//
// Denials on /api/ paths get a JSON error body; page requests are
// redirected.
//
// The middleware chain adds request ids, panic recovery, access logging,
// Prometheus counters and an optional per-client rate limit.
package httpserver
