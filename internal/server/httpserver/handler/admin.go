package handler

import (
	"net/http"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/server/httpserver/cookie"
)

// handleAdminLogin handles POST /api/admin/login.
func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	password, _ := readBody(w, r).stringField("password")

	resp, err := h.cfg.Admin.Login(r.Context(), &service.AdminLoginRequest{
		Password: password,
		ClientIP: h.cfg.ClientIP(r),
	})
	if err != nil {
		code := h.handleServiceError(w, r, err)
		h.cfg.Metrics.RecordAdminLogin(code)
		if code == domain.ErrInvalidSecret.Code {
			h.logger.WarnContext(r.Context(), "admin login rejected", "ip", h.cfg.ClientIP(r))
		}
		return
	}

	h.logger.InfoContext(r.Context(), "admin login", "ip", resp.Session.IP)
	h.cfg.Metrics.RecordAdminLogin(resultLabel(""))

	h.cfg.AdminCookie.Set(w.Header(), resp.SessionID)
	h.writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// handleAdminLogout handles POST /api/admin/logout. The cookie is always
// cleared; the backing session is deleted when the cookie names one.
func (h *Handler) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	sid := cookie.Get(r, h.cfg.AdminCookie.Name)
	h.cfg.AdminCookie.Clear(w.Header())
	if err := h.cfg.Admin.Logout(r.Context(), sid); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
