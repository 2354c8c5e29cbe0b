// Command pagegate-server is the access gate.
//
// It serves the invitation login, the admin token API and, when
// server.http.site_root is set, a static site behind the guard:
//
//	pagegate-server --config /etc/pagegate/config.yaml
//	ADMIN_SECRET=changeme pagegate-server --addr :8080 --log-level debug
//
// Configuration is read from the file, then PAGEGATE_ variables
// (PAGEGATE_STORAGE__BACKEND=badger), then flags. log.level is reloaded
// when the file changes.
package main
