package handler

import (
	"net/http"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/telemetry/logger"
)

// handleLogin handles POST /api/login.
//
// The invitation token is exchanged for a user session and the sid cookie
// is issued with its full Max-Age regardless of the session expiry, which
// the guard enforces server-side.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	token, _ := readBody(w, r).stringField("token")
	if token == "" {
		h.cfg.Metrics.RecordRedemption(domain.ErrTokenRequired.Code)
		h.writeError(w, domain.ErrTokenRequired.Code)
		return
	}

	resp, err := h.cfg.Exchange.Redeem(r.Context(), token)
	if err != nil {
		code := h.handleServiceError(w, r, err)
		h.cfg.Metrics.RecordRedemption(code)
		return
	}

	h.logger.InfoContext(r.Context(), "token redeemed",
		"hint", logger.RedactString(token),
		"expires", resp.Session.ExpiresAt != nil,
	)
	h.cfg.Metrics.RecordRedemption(resultLabel(""))

	h.cfg.UserCookie.Set(w.Header(), resp.SessionID)
	h.writeJSON(w, http.StatusOK, OKResponse{OK: true})
}
