package handler

import (
	"net/http"

	"github.com/yndnr/pagegate-go/internal/core/domain"
	"github.com/yndnr/pagegate-go/internal/core/service"
	"github.com/yndnr/pagegate-go/internal/telemetry/logger"
)

// handleListTokens handles GET /api/admin/tokens?prefix=&limit=&cursor=.
func (h *Handler) handleListTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	resp, err := h.cfg.Tokens.List(r.Context(), &service.ListTokensRequest{
		Prefix: q.Get("prefix"),
		Limit:  parseLimit(q.Get("limit")),
		Cursor: q.Get("cursor"),
	})
	if err != nil {
		h.cfg.Metrics.RecordTokenOp("list", h.handleServiceError(w, r, err))
		return
	}
	h.cfg.Metrics.RecordTokenOp("list", resultLabel(""))

	out := ListTokensResponse{
		Items:        resp.Items,
		ListComplete: resp.Complete,
	}
	if resp.Cursor != "" {
		out.Cursor = &resp.Cursor
	}
	h.writeJSON(w, http.StatusOK, out)
}

// handleCreateToken handles POST /api/admin/tokens.
func (h *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	b := readBody(w, r)

	req := &service.CreateTokenRequest{
		ExpiresInMinutes: b.positive("expiresInMinutes"),
		ExpiresInDays:    b.positive("expiresInDays"),
	}
	req.Key, _ = b.stringField("key")
	if active, ok := b.boolField("active"); ok {
		req.Active = &active
	}

	view, err := h.cfg.Tokens.Create(r.Context(), req)
	if err != nil {
		h.cfg.Metrics.RecordTokenOp("create", h.handleServiceError(w, r, err))
		return
	}
	h.cfg.Metrics.RecordTokenOp("create", resultLabel(""))

	h.writeJSON(w, http.StatusCreated, TokenResponse{OK: true, TokenView: *view})
}

// updatableFields are the body keys accepted by token update.
var updatableFields = []string{"active", "used", "expiresInDays", "expiresInMinutes"}

// handleUpdateToken handles PATCH /api/admin/tokens?key=.
func (h *Handler) handleUpdateToken(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.cfg.Metrics.RecordTokenOp("update", domain.ErrKeyRequired.Code)
		h.writeError(w, domain.ErrKeyRequired.Code)
		return
	}

	b := readBody(w, r)
	present := false
	for _, f := range updatableFields {
		if b.has(f) {
			present = true
			break
		}
	}
	if !present {
		h.cfg.Metrics.RecordTokenOp("update", domain.ErrNothingToUpdate.Code)
		h.writeError(w, domain.ErrNothingToUpdate.Code)
		return
	}

	req := &service.UpdateTokenRequest{Key: key}
	if b.has("active") {
		active := b.truthy("active")
		req.Active = &active
	}
	if b.has("used") {
		used := b.truthy("used")
		req.Used = &used
	}
	switch {
	case b.has("expiresInMinutes"):
		req.Expiry = expiryChange(b, "expiresInMinutes", domain.MinutesToMillis)
	case b.has("expiresInDays"):
		req.Expiry = expiryChange(b, "expiresInDays", domain.DaysToMillis)
	}

	view, err := h.cfg.Tokens.Update(r.Context(), req)
	if err != nil {
		h.cfg.Metrics.RecordTokenOp("update", h.handleServiceError(w, r, err))
		return
	}
	h.cfg.Metrics.RecordTokenOp("update", resultLabel(""))

	h.writeJSON(w, http.StatusOK, TokenResponse{OK: true, TokenView: *view})
}

// expiryChange maps a duration field to an update: null or 0 clears, a
// positive number sets, anything else leaves the stored value alone.
func expiryChange(b body, field string, toMillis func(float64) int64) *service.ExpiryChange {
	if b.isNullOrZero(field) {
		return &service.ExpiryChange{Clear: true}
	}
	if v := b.positive(field); v > 0 {
		return &service.ExpiryChange{Millis: toMillis(v)}
	}
	return nil
}

// handleDeleteToken handles DELETE /api/admin/tokens?key=.
func (h *Handler) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	if err := h.cfg.Tokens.Delete(r.Context(), key); err != nil {
		h.cfg.Metrics.RecordTokenOp("delete", h.handleServiceError(w, r, err))
		return
	}
	h.cfg.Metrics.RecordTokenOp("delete", resultLabel(""))

	h.logger.InfoContext(r.Context(), "token deleted", "hint", logger.RedactString(key))
	h.writeJSON(w, http.StatusOK, DeleteTokenResponse{OK: true, Key: key})
}
