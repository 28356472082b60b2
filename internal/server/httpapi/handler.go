// Package httpapi exposes the owner registry over HTTP+JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/ownerapi"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

// Registry is the service behind the handler.
type Registry interface {
	Status(ctx context.Context, installID string) (ownerapi.StatusResponse, error)
	Claim(ctx context.Context, req ownerapi.ClaimRequest) (ownerapi.ClaimResponse, error)
	Release(ctx context.Context, installID string) (bool, error)
}

type Handler struct {
	registry Registry
	log      logging.Logger
}

func NewHandler(r Registry, log logging.Logger) *Handler {
	return &Handler{registry: r, log: log}
}

// RegisterRoutes mounts the registry endpoints:
//   - GET  /v1/owner/status?install_id=<id>
//   - POST /v1/owner/claim
//   - POST /v1/owner/release
//   - GET  /healthz
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(ownerapi.PathStatus, h.HandleStatus)
	r.Post(ownerapi.PathClaim, h.HandleClaim)
	r.Post(ownerapi.PathRelease, h.HandleRelease)
	r.Get(ownerapi.PathHealth, h.HandleHealth)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.registry.Status(r.Context(), r.URL.Query().Get(ownerapi.QueryInstallID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

// HandleClaim answers 200 for both granted and denied claims; a denial is
// "ok": false in the body.
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	var req ownerapi.ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.registry.Claim(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	var req ownerapi.ReleaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	ok, err := h.registry.Release(r.Context(), req.InstallID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ownerapi.ReleaseResponse{Released: ok})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.log.Warn(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, common.ErrValidation) {
		http.Error(w, common.Message(err), http.StatusBadRequest)
		return
	}
	h.log.Error(r.Context(), "registry request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error(r.Context(), "failed to encode response", "error", err)
	}
}
