// Package cmap provides a concurrent string-keyed map sharded by maphash,
// so lookups for different keys rarely contend on the same lock.
//
// The HTTP rate limiter keeps one token bucket per client address in it.
package cmap
