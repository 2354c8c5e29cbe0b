package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/telemetry/logger"
	"github.com/yndnr/pagegate-go/internal/telemetry/metric"
	"github.com/yndnr/pagegate-go/pkg/cmap"
)

// Context keys for request-scoped values.
type contextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyStartTime is the context key for request start time.
	ContextKeyStartTime contextKey = "start_time"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RequestID adds a unique request ID to each request.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "req-" + ulid.Make().String()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
			ctx = context.WithValue(ctx, ContextKeyStartTime, time.Now())
			ctx = logger.WithRequestID(ctx, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover recovers from panics and returns 500 server_error.
func Recover(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"request_id", GetRequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeErrorCode(w, domain.ErrServer.Code)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Audit logs one line per request. 5xx responses log at Error, 4xx at
// Warn, everything else at Info.
func Audit(logger *slog.Logger, clientIP *ClientIP) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			startTime, ok := r.Context().Value(ContextKeyStartTime).(time.Time)
			if !ok {
				startTime = time.Now()
			}

			attrs := []any{
				"request_id", GetRequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(startTime).Milliseconds(),
				"client_ip", clientIP.Resolve(r),
			}
			if loc := wrapped.Header().Get("Location"); loc != "" {
				attrs = append(attrs, "location", loc)
			}

			switch {
			case wrapped.statusCode >= 500:
				logger.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				logger.Warn("request completed with client error", attrs...)
			default:
				logger.Info("request completed", attrs...)
			}
		})
	}
}

// Metrics records request counts and latency.
func Metrics(reg *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			reg.RecordRequest(r.Method, strconv.Itoa(wrapped.statusCode))
			reg.ObserveRequestDuration(r.Method, time.Since(start).Seconds())
		})
	}
}

// ============================================================================
// Rate limiting
// ============================================================================

// limiterIdleTimeout is how long an unused per-client limiter is kept.
const limiterIdleTimeout = 10 * time.Minute

// RateLimiterRegistry keeps one token bucket per client IP.
type RateLimiterRegistry struct {
	limiters *cmap.Map[*clientLimiter]
	limit    rate.Limit
	burst    int
	now      func() time.Time
	lastGC   atomic.Int64
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// NewRateLimiterRegistry creates a registry allowing requestsPerSecond with
// the given burst. A burst below 1 defaults to the rounded-up rate.
func NewRateLimiterRegistry(requestsPerSecond float64, burst int) *RateLimiterRegistry {
	if burst < 1 {
		burst = max(int(requestsPerSecond+0.999), 1)
	}
	return &RateLimiterRegistry{
		limiters: cmap.New[*clientLimiter](),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed now.
func (r *RateLimiterRegistry) Allow(ip string) bool {
	now := r.now()
	r.collectIdle(now)

	cl := r.limiters.GetOrCreate(ip, func() *clientLimiter {
		return &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
	})
	cl.lastSeen.Store(now.UnixNano())
	return cl.limiter.AllowN(now, 1)
}

// collectIdle drops limiters unused for limiterIdleTimeout. At most one
// caller per interval does the sweep.
func (r *RateLimiterRegistry) collectIdle(now time.Time) {
	last := r.lastGC.Load()
	if now.UnixNano()-last <= int64(limiterIdleTimeout) {
		return
	}
	if !r.lastGC.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-limiterIdleTimeout).UnixNano()
	r.limiters.DeleteFunc(func(_ string, cl *clientLimiter) bool {
		return cl.lastSeen.Load() < cutoff
	})
}

// Len returns the number of tracked clients.
func (r *RateLimiterRegistry) Len() int {
	return r.limiters.Len()
}

// RateLimit rejects requests over the per-client limit with 429
// rate_limited.
func RateLimit(limiters *RateLimiterRegistry, clientIP *ClientIP) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.Allow(clientIP.Resolve(r)) {
				w.Header().Set("Retry-After", "1")
				writeErrorCode(w, domain.ErrRateLimited.Code)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Client IP
// ============================================================================

// ClientIP resolves the client address. Forwarding headers are honoured
// only when the socket peer is a trusted proxy.
type ClientIP struct {
	headers []string
	trusted []netip.Prefix
}

// NewClientIP creates a resolver that consults headers in order for
// requests arriving from one of trusted. With no trusted prefixes the
// headers are ignored.
func NewClientIP(headers []string, trusted ...netip.Prefix) *ClientIP {
	return &ClientIP{
		headers: append([]string(nil), headers...),
		trusted: append([]netip.Prefix(nil), trusted...),
	}
}

// Resolve returns the client address. For a request from a trusted proxy
// it is taken from the first configured header that has a value: the
// right-most entry of a comma-separated list that is not itself a trusted
// proxy. Otherwise it is the host part of the socket address.
func (c *ClientIP) Resolve(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	for _, h := range c.headers {
		if v := c.fromHeader(r.Header.Get(h)); v != "" {
			return v
		}
	}
	return peer
}

func (c *ClientIP) fromHeader(v string) string {
	hops := strings.Split(v, ",")
	first := ""
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		first = hop
		if !c.isTrusted(hop) {
			return hop
		}
	}
	return first
}

func (c *ClientIP) isTrusted(host string) bool {
	if len(c.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ============================================================================
// Helpers
// ============================================================================

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// GetRequestIDFromContext retrieves the request ID from context.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// writeErrorCode writes {"error": code} with the status mapped from code.
func writeErrorCode(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domain.HTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
