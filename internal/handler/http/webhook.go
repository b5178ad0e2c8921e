package http

import (
	"log/slog"
	"net/http"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/service"
	"github.com/primecart/search-sync/pkg/httputil"
	"github.com/primecart/search-sync/pkg/validator"
)

// WebhookHandler receives push notifications from the content system.
type WebhookHandler struct {
	service *service.SyncService
	logger  *slog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler.
func NewWebhookHandler(svc *service.SyncService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		logger:  logger,
	}
}

// ContentWebhookRequest is the payload the content system posts when an
// entry changes. Malformed payloads are rejected here with a 400 and never
// reach the pipeline.
type ContentWebhookRequest struct {
	Kind    string `json:"kind" validate:"required,oneof=product brand category"`
	OwnerID string `json:"owner_id" validate:"required"`
	Event   string `json:"event" validate:"required,oneof=created updated deleted"`
}

// ContentChanged handles POST /api/v1/webhooks/content
func (h *WebhookHandler) ContentChanged(w http.ResponseWriter, r *http.Request) {
	var req ContentWebhookRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "content webhook received",
		slog.String("kind", req.Kind),
		slog.String("owner_id", req.OwnerID),
		slog.String("event", req.Event),
	)

	var (
		result *domain.SyncResult
		err    error
	)
	switch domain.EntityKind(req.Kind) {
	case domain.KindProduct:
		result, err = h.service.SyncProduct(r.Context(), req.OwnerID)
	case domain.KindBrand:
		result, err = h.service.SyncBrand(r.Context(), req.OwnerID)
	case domain.KindCategory:
		result, err = h.service.SyncCategory(r.Context(), req.OwnerID)
	}
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
