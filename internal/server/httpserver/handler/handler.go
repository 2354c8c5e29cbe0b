package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/server/httpserver/cookie"
	"github.com/yndnr/pagegate-go/internal/telemetry/metric"
)

// Config holds the dependencies of Handler.
type Config struct {
	Tokens   *service.TokenService
	Exchange *service.ExchangeService
	Admin    *service.AdminAuthService

	UserCookie  cookie.Spec
	AdminCookie cookie.Spec

	// ClientIP resolves the address recorded on admin sessions.
	ClientIP func(*http.Request) string

	// Ready probes the backing store for GET /ready. Nil means always ready.
	Ready func(context.Context) error

	// Site serves every path not claimed by an endpoint. Nil means 404.
	Site http.Handler

	Metrics *metric.Registry
	Logger  *slog.Logger
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	cfg    Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ClientIP == nil {
		cfg.ClientIP = func(*http.Request) string { return "" }
	}
	if cfg.Site == nil {
		cfg.Site = http.NotFoundHandler()
	}

	h := &Handler{
		cfg:    cfg,
		logger: cfg.Logger,
		mux:    http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Credential exchange
	h.mux.HandleFunc("POST /api/login", h.handleLogin)
	h.mux.HandleFunc("POST /api/admin/login", h.handleAdminLogin)
	h.mux.HandleFunc("POST /api/admin/logout", h.handleAdminLogout)

	// Token registry
	h.mux.HandleFunc("GET /api/admin/tokens", h.handleListTokens)
	h.mux.HandleFunc("POST /api/admin/tokens", h.handleCreateToken)
	h.mux.HandleFunc("PATCH /api/admin/tokens", h.handleUpdateToken)
	h.mux.HandleFunc("DELETE /api/admin/tokens", h.handleDeleteToken)

	// Everything else goes to the site.
	h.mux.Handle("/", h.cfg.Site)
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes {"error": code} with the status mapped from code.
func (h *Handler) writeError(w http.ResponseWriter, code string) {
	h.writeJSON(w, domain.HTTPStatus(code), ErrorResponse{Error: code})
}

// handleServiceError converts service errors to HTTP responses and returns
// the wire code written.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) string {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, code)
		return code
	}

	h.logger.ErrorContext(r.Context(), "internal error",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	h.writeError(w, domain.ErrServer.Code)
	return domain.ErrServer.Code
}

// resultLabel turns a written code into a metrics label.
func resultLabel(code string) string {
	if code == "" {
		return "ok"
	}
	return code
}
