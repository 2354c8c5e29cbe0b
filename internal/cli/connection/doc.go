// Package connection is the HTTP client used by pagegate-cli.
//
// The client holds a cookie jar: Login posts the admin secret to
// /api/admin/login and the returned admin_sid cookie authenticates every
// later call made through the same Client. Non-2xx answers surface as
// *APIError carrying the server's error code.
package connection
