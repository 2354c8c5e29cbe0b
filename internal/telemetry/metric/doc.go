// Package metric provides Prometheus metrics for pagegate.
//
// Metrics include:
//
//   - Guard decisions by request class and outcome
//   - Token redemptions and admin logins by outcome
//   - HTTP request counts and latency histograms
//
// Storage backends register their own collectors on the same registry.
// Everything is exposed at /metrics in Prometheus text format.
package metric
