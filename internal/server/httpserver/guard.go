package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/server/httpserver/cookie"
	"github.com/yndnr/pagegate-go/internal/telemetry/metric"
)

// Class is the guard's classification of a request path.
type Class string

const (
	ClassPublic    Class = "public"
	ClassAdmin     Class = "admin"
	ClassProtected Class = "protected"
)

// Guard outcomes recorded in metrics.
const (
	outcomeAllow        = "allow"
	outcomeRedirect     = "redirect"
	outcomeUnauthorized = "unauthorized"
	outcomeExpired      = "expired"
	outcomeError        = "error"
)

// GuardConfig is the path policy enforced by AccessGuard.
type GuardConfig struct {
	// PublicPaths are forwarded without any check when matched exactly.
	PublicPaths []string

	// StaticPrefixes are forwarded without any check.
	StaticPrefixes []string

	// ProtectedPages are page names requiring a user session. Names are
	// compared after normalization (see PageName).
	ProtectedPages []string

	// AdminPrefixes select the admin namespace.
	AdminPrefixes []string

	// APIPrefix marks paths that get JSON errors instead of redirects.
	APIPrefix string

	LoginPage      string
	HomePage       string
	AdminLanding   string
	AdminDashboard string
	AdminLoginPath string

	UserCookie  cookie.Spec
	AdminCookie cookie.Spec
}

// DefaultGuardConfig returns the stock path policy.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		PublicPaths:    []string{"/", "/index.html", "/login.html"},
		StaticPrefixes: []string{"/assets/", "/assetsdiff/", "/qr_files/", "/scanqr_files/", "/showqr_files/"},
		ProtectedPages: []string{"gen", "card", "home", "qr", "scanqr", "showqr", "services", "more", "moreid", "pesel", "shortcuts"},
		AdminPrefixes:  []string{"/admin", "/api/admin"},
		APIPrefix:      "/api/",
		LoginPage:      "/login.html",
		HomePage:       "/index.html",
		AdminLanding:   "/admin/index.html",
		AdminDashboard: "/admin/dashboard.html",
		AdminLoginPath: "/api/admin/login",
		UserCookie:     cookie.Spec{Name: "sid", MaxAge: 157680000, Secure: true},
		AdminCookie:    cookie.Spec{Name: "admin_sid", MaxAge: 86400, Secure: true},
	}
}

// AccessGuard classifies requests and enforces session checks in front of
// the downstream handler. Its configuration is copied at construction and
// never changes afterwards.
type AccessGuard struct {
	cfg       GuardConfig
	public    map[string]bool
	protected map[string]bool
	users     *service.Realm[*domain.Session]
	admins    *service.Realm[*domain.AdminSession]
	logger    *slog.Logger
	metrics   *metric.Registry

	userPolicy  sessionPolicy
	adminPolicy sessionPolicy
}

// NewAccessGuard creates a guard. logger and metrics may be nil.
func NewAccessGuard(cfg GuardConfig, users *service.Realm[*domain.Session], admins *service.Realm[*domain.AdminSession], logger *slog.Logger, metrics *metric.Registry) *AccessGuard {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.PublicPaths = append([]string(nil), cfg.PublicPaths...)
	cfg.StaticPrefixes = append([]string(nil), cfg.StaticPrefixes...)
	cfg.ProtectedPages = append([]string(nil), cfg.ProtectedPages...)
	cfg.AdminPrefixes = append([]string(nil), cfg.AdminPrefixes...)

	g := &AccessGuard{
		cfg:       cfg,
		public:    make(map[string]bool, len(cfg.PublicPaths)),
		protected: make(map[string]bool, len(cfg.ProtectedPages)),
		users:     users,
		admins:    admins,
		logger:    logger,
		metrics:   metrics,
	}
	for _, p := range cfg.PublicPaths {
		g.public[p] = true
	}
	for _, p := range cfg.ProtectedPages {
		g.protected[strings.ToLower(p)] = true
	}

	g.userPolicy = sessionPolicy{
		class:         ClassProtected,
		cookie:        cfg.UserCookie,
		refreshCookie: true,
		missing:       denial{redirect: cfg.LoginPage},
		stale:         denial{redirect: cfg.LoginPage},
		expired:       denial{redirect: cfg.HomePage, clearCookie: true, deleteEntry: true},
	}
	g.adminPolicy = sessionPolicy{
		class:   ClassAdmin,
		cookie:  cfg.AdminCookie,
		missing: denial{redirect: cfg.AdminLanding, apiError: domain.ErrAdminUnauthorized},
		stale:   denial{redirect: cfg.AdminLanding, apiError: domain.ErrAdminSessionExpired, clearCookie: true},
		expired: denial{redirect: cfg.AdminLanding, apiError: domain.ErrAdminSessionExpired, clearCookie: true, deleteEntry: true},
	}
	return g
}

// Config returns a copy of the guard configuration.
func (g *AccessGuard) Config() GuardConfig {
	return g.cfg
}

// Classify returns the class of path.
func (g *AccessGuard) Classify(path string) Class {
	if g.public[path] {
		return ClassPublic
	}
	for _, p := range g.cfg.StaticPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassPublic
		}
	}
	for _, p := range g.cfg.AdminPrefixes {
		if strings.HasPrefix(path, p) {
			return ClassAdmin
		}
	}
	if g.protected[PageName(path)] {
		return ClassProtected
	}
	return ClassPublic
}

// PageName normalizes a request path to a page name: one trailing slash
// and all leading slashes are removed, a ".html" suffix is dropped in any
// case, and the result is lower-cased.
func PageName(path string) string {
	name := strings.TrimSuffix(path, "/")
	name = strings.TrimLeft(name, "/")
	if n := len(name); n >= 5 && strings.EqualFold(name[n-5:], ".html") {
		name = name[:n-5]
	}
	return strings.ToLower(name)
}

// Middleware returns the guard as a Middleware.
func (g *AccessGuard) Middleware() Middleware {
	return g.Wrap
}

// Wrap places the guard in front of next.
func (g *AccessGuard) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch g.Classify(r.URL.Path) {
		case ClassAdmin:
			g.serveAdmin(w, r, next)
		case ClassProtected:
			if checkSession(g, w, r, g.users, g.userPolicy) {
				next.ServeHTTP(w, r)
			}
		default:
			g.record(ClassPublic, outcomeAllow)
			next.ServeHTTP(w, r)
		}
	})
}

func (g *AccessGuard) serveAdmin(w http.ResponseWriter, r *http.Request, next http.Handler) {
	path := r.URL.Path

	if r.Method == http.MethodPost && path == g.cfg.AdminLoginPath {
		g.record(ClassAdmin, outcomeAllow)
		next.ServeHTTP(w, r)
		return
	}

	if r.Method == http.MethodGet && path == g.cfg.AdminLanding {
		if sid := cookie.Get(r, g.cfg.AdminCookie.Name); sid != "" {
			_, err := g.admins.Lookup(r.Context(), sid)
			switch {
			case err == nil:
				g.record(ClassAdmin, outcomeRedirect)
				http.Redirect(w, r, g.cfg.AdminDashboard, http.StatusFound)
				return
			case !errors.Is(err, service.ErrSessionNotFound):
				g.fail(w, r, ClassAdmin, err)
				return
			}
		}
		g.record(ClassAdmin, outcomeAllow)
		next.ServeHTTP(w, r)
		return
	}

	if checkSession(g, w, r, g.admins, g.adminPolicy) {
		next.ServeHTTP(w, r)
	}
}

// ============================================================================
// Session checks
// ============================================================================

// sessionPolicy describes how one realm's cookie is checked.
type sessionPolicy struct {
	class  Class
	cookie cookie.Spec

	// refreshCookie re-issues the cookie with a full Max-Age on success.
	refreshCookie bool

	missing denial // no cookie
	stale   denial // cookie without a usable store entry
	expired denial // entry past its own expiry
}

// denial describes the response to a failed check.
type denial struct {
	redirect    string
	apiError    *domain.DomainError
	clearCookie bool
	deleteEntry bool
}

// checkSession validates the realm cookie on r and refreshes the session.
// It reports whether the request may proceed; when it returns false the
// response has been written.
func checkSession[T service.Record](g *AccessGuard, w http.ResponseWriter, r *http.Request, realm *service.Realm[T], p sessionPolicy) bool {
	ctx := r.Context()

	sid := cookie.Get(r, p.cookie.Name)
	if sid == "" {
		g.deny(w, r, p, p.missing, outcomeUnauthorized)
		return false
	}

	rec, err := realm.Lookup(ctx, sid)
	if errors.Is(err, service.ErrSessionNotFound) {
		g.deny(w, r, p, p.stale, outcomeUnauthorized)
		return false
	}
	if err != nil {
		g.fail(w, r, p.class, err)
		return false
	}

	if rec.Expired(realm.Now()) {
		if p.expired.deleteEntry {
			if err := realm.Delete(ctx, sid); err != nil {
				g.fail(w, r, p.class, err)
				return false
			}
		}
		g.deny(w, r, p, p.expired, outcomeExpired)
		return false
	}

	if err := realm.Renew(ctx, sid, rec); err != nil {
		g.fail(w, r, p.class, err)
		return false
	}

	if p.refreshCookie {
		p.cookie.Set(w.Header(), sid)
	}
	g.record(p.class, outcomeAllow)
	return true
}

func (g *AccessGuard) deny(w http.ResponseWriter, r *http.Request, p sessionPolicy, d denial, outcome string) {
	g.record(p.class, outcome)
	if d.clearCookie {
		p.cookie.Clear(w.Header())
	}
	if d.apiError != nil && strings.HasPrefix(r.URL.Path, g.cfg.APIPrefix) {
		writeErrorCode(w, d.apiError.Code)
		return
	}
	http.Redirect(w, r, d.redirect, http.StatusFound)
}

func (g *AccessGuard) fail(w http.ResponseWriter, r *http.Request, class Class, err error) {
	g.record(class, outcomeError)
	g.logger.ErrorContext(r.Context(), "guard store failure",
		"class", string(class),
		"path", r.URL.Path,
		"error", err,
	)
	writeErrorCode(w, domain.ErrServer.Code)
}

func (g *AccessGuard) record(class Class, outcome string) {
	g.metrics.RecordGuardDecision(string(class), outcome)
}
