// Package certreload keeps the HTTPS listener's certificate current.
//
// The Reloader loads server.http.tls_cert_file and tls_key_file at start,
// then watches both with fsnotify and swaps in the new pair after a
// rotation. Handshakes read it through GetCertificate.
package certreload
