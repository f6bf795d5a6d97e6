package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"teslabooking/internal/httputil"
	"teslabooking/internal/model"
	"teslabooking/internal/service"
	"teslabooking/internal/transport/http/middleware"
)

// ConnectionStore saves the caller's third-party token.
type ConnectionStore interface {
	SaveConnection(ctx context.Context, userID string, req *model.SaveConnectionRequest) error
}

type PartnerHandler struct {
	connections ConnectionStore
	logger      *slog.Logger
}

func NewPartnerHandler(connections ConnectionStore) *PartnerHandler {
	return &PartnerHandler{
		connections: connections,
		logger:      slog.Default().With("component", "partner"),
	}
}

// SaveConnection handles PUT /rest/v1/partner-connection
func (h *PartnerHandler) SaveConnection(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.SaveConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.connections.SaveConnection(r.Context(), userID, &req); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("save connection failed", "user_id", userID, "error", err)
		httputil.WriteInternalError(w, "Failed to save connection")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
