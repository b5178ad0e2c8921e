package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/service"
	"github.com/primecart/search-sync/pkg/httputil"
	"github.com/primecart/search-sync/pkg/validator"
)

// SyncHandler exposes the sync operations over HTTP.
type SyncHandler struct {
	service *service.SyncService
	logger  *slog.Logger
}

// NewSyncHandler creates the sync HTTP handler.
func NewSyncHandler(svc *service.SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		service: svc,
		logger:  logger,
	}
}

// SyncRequest is the optional JSON body narrowing a batch run.
type SyncRequest struct {
	IDs    []string `json:"ids" validate:"omitempty,max=500,dive,required"`
	Limit  int      `json:"limit" validate:"omitempty,min=1,max=500"`
	Offset int      `json:"offset" validate:"omitempty,min=0"`
}

// decodeSyncRequest reads the optional request body. An empty body selects a
// full run.
func decodeSyncRequest(w http.ResponseWriter, r *http.Request) (service.SyncOptions, bool) {
	var req SyncRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return service.SyncOptions{}, true
	}
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid JSON body"},
		})
		return service.SyncOptions{}, false
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return service.SyncOptions{}, false
	}
	return service.SyncOptions{IDs: req.IDs, Limit: req.Limit, Offset: req.Offset}, true
}

// SyncProducts handles POST /api/v1/sync/products
func (h *SyncHandler) SyncProducts(w http.ResponseWriter, r *http.Request) {
	opts, ok := decodeSyncRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncProducts(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SyncBrands handles POST /api/v1/sync/brands
func (h *SyncHandler) SyncBrands(w http.ResponseWriter, r *http.Request) {
	opts, ok := decodeSyncRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncBrands(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SyncCategories handles POST /api/v1/sync/categories
func (h *SyncHandler) SyncCategories(w http.ResponseWriter, r *http.Request) {
	opts, ok := decodeSyncRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.SyncCategories(r.Context(), opts)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SyncProduct handles POST /api/v1/sync/products/{id}
func (h *SyncHandler) SyncProduct(w http.ResponseWriter, r *http.Request) {
	h.syncOne(w, r, h.service.SyncProduct)
}

// SyncBrand handles POST /api/v1/sync/brands/{id}
func (h *SyncHandler) SyncBrand(w http.ResponseWriter, r *http.Request) {
	h.syncOne(w, r, h.service.SyncBrand)
}

// SyncCategory handles POST /api/v1/sync/categories/{id}
func (h *SyncHandler) SyncCategory(w http.ResponseWriter, r *http.Request) {
	h.syncOne(w, r, h.service.SyncCategory)
}

func (h *SyncHandler) syncOne(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*domain.SyncResult, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "id is required"},
		})
		return
	}
	result, err := op(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// SyncSettings handles POST /api/v1/sync/settings
func (h *SyncHandler) SyncSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SyncSettings(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": "applied"}})
}
