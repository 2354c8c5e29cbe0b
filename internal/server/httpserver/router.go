package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/pagegate-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the endpoints and the downstream site.
	Handler http.Handler

	// Guard is placed in front of Handler.
	Guard *AccessGuard

	// Logger for request logging.
	Logger *slog.Logger

	// Metrics receives request and guard counters. Nil disables them.
	Metrics *metric.Registry

	// MetricsEnabled exposes GET /metrics outside the guard.
	MetricsEnabled bool

	// ClientIP resolves the caller address for audit and rate limiting.
	ClientIP *ClientIP

	// RateLimiter limits requests per client IP. Nil disables it.
	RateLimiter *RateLimiterRegistry

	// EnableAudit enables one access log line per request.
	EnableAudit bool
}

// NewRouter creates the top-level handler.
//
// Order: Recover -> RequestID -> Metrics -> Audit -> RateLimit -> Guard -> Handler
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ClientIP == nil {
		cfg.ClientIP = NewClientIP(nil)
	}

	var guarded http.Handler = cfg.Handler
	if cfg.Guard != nil {
		guarded = cfg.Guard.Wrap(guarded)
	}

	middlewares := []Middleware{
		Recover(cfg.Logger),
		RequestID(),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, Metrics(cfg.Metrics))
	}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(cfg.Logger, cfg.ClientIP))
	}
	if cfg.RateLimiter != nil {
		middlewares = append(middlewares, RateLimit(cfg.RateLimiter, cfg.ClientIP))
	}

	mux := http.NewServeMux()
	if cfg.MetricsEnabled && cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), Recover(cfg.Logger), RequestID()))
	}
	mux.Handle("/", Chain(guarded, middlewares...))
	return mux
}
