package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/service"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/httputil"
)

// SellerHandler handles HTTP requests for seller read endpoints.
type SellerHandler struct {
	service *service.ProfileService
	logger  *slog.Logger
}

// NewSellerHandler creates a new seller HTTP handler.
func NewSellerHandler(svc *service.ProfileService, logger *slog.Logger) *SellerHandler {
	return &SellerHandler{
		service: svc,
		logger:  logger,
	}
}

// GetSeller handles GET /api/v1/sellers/{identifier}
func (h *SellerHandler) GetSeller(w http.ResponseWriter, r *http.Request) {
	seller, err := h.service.GetSeller(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: seller})
}

// GetProfile handles GET /api/v1/sellers/{identifier}/profile
func (h *SellerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetSellerProfile(r.Context(), chi.URLParam(r, "identifier"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}
