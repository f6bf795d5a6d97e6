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

// SubscriptionStore keeps the push address list.
type SubscriptionStore interface {
	Register(ctx context.Context, userID string, isAdmin bool, req *model.RegisterSubscriptionRequest) (*model.PushSubscription, error)
	Remove(ctx context.Context, deviceToken string) error
}

type PushHandler struct {
	subs     SubscriptionStore
	admins   middleware.AdminChecker
	vapidKey string
	logger   *slog.Logger
}

func NewPushHandler(subs SubscriptionStore, admins middleware.AdminChecker, vapidPublicKey string) *PushHandler {
	return &PushHandler{
		subs:     subs,
		admins:   admins,
		vapidKey: vapidPublicKey,
		logger:   slog.Default().With("component", "push"),
	}
}

// Register handles POST /rest/v1/push-subscriptions
func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.RegisterSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	isAdmin, err := h.admins.IsAdmin(r.Context(), userID)
	if err != nil {
		h.logger.Warn("admin lookup failed", "user_id", userID, "error", err)
		isAdmin = false
	}

	sub, err := h.subs.Register(r.Context(), userID, isAdmin, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			httputil.WriteBadRequest(w, err.Error())
		case errors.Is(err, service.ErrForbidden):
			httputil.WriteForbidden(w, "Only admins can register devices without an appointment")
		default:
			h.logger.Error("register device failed", "user_id", userID, "error", err)
			httputil.WriteInternalError(w, "Failed to register device token")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sub)
}

// Remove handles DELETE /rest/v1/push-subscriptions, e.g. on sign out.
func (h *PushHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req model.RemoveSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.subs.Remove(r.Context(), req.DeviceToken); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("remove device failed", "error", err)
		httputil.WriteInternalError(w, "Failed to remove device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token removed",
	})
}

// VAPIDKey handles GET /rest/v1/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidKey == "" {
		httputil.WriteServiceUnavailable(w, httputil.ErrCodeServiceUnavailable, "Web push is not configured")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"public_key": h.vapidKey})
}
