package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"teslabooking/internal/httputil"
	"teslabooking/internal/i18n"
	"teslabooking/internal/metrics"
	"teslabooking/internal/model"
	"teslabooking/internal/service"
	"teslabooking/internal/transport/http/middleware"
)

const maxFunctionBodyBytes = 1 << 20

// maxChatBodyBytes fits the largest valid conversation even when every
// character arrives as a six byte \u escape.
const maxChatBodyBytes = model.MaxChatMessages*model.MaxChatContentLength*6 + 64<<10

// ChatStreamer opens the upstream completion stream.
type ChatStreamer interface {
	Stream(ctx context.Context, req *model.ChatRequest, lang string) (io.ReadCloser, error)
}

// ArrivalNotifier fans an arrival out to the admin devices.
type ArrivalNotifier interface {
	NotifyArrival(ctx context.Context, req *model.ArrivalRequest) (int, error)
}

// PartnerRegistrar forwards the partner account registration.
type PartnerRegistrar interface {
	Register(ctx context.Context, userID string, req *model.PartnerRegisterRequest) (*model.PartnerRegisterResponse, int, error)
	ResolveRegion(region string) string
}

// FunctionsHandler serves the three request handlers under /functions/v1.
type FunctionsHandler struct {
	chat    ChatStreamer
	arrival ArrivalNotifier
	partner PartnerRegistrar
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewFunctionsHandler(chat ChatStreamer, arrival ArrivalNotifier, partner PartnerRegistrar, m *metrics.Metrics) *FunctionsHandler {
	return &FunctionsHandler{
		chat:    chat,
		arrival: arrival,
		partner: partner,
		metrics: m,
		logger:  slog.Default().With("component", "functions"),
	}
}

// Chat handles POST /functions/v1/chat and streams the upstream SSE body
// through unchanged.
func (h *FunctionsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t := i18n.Lookup(requestLanguage(r, ""))
		h.metrics.ChatRequest("invalid")
		httputil.WriteBadRequest(w, t.T(i18n.KeyChatInvalid))
		return
	}
	lang := requestLanguage(r, req.Language)
	t := i18n.Lookup(lang)

	if err := service.ValidateChat(&req); err != nil {
		h.metrics.ChatRequest("invalid")
		httputil.WriteBadRequest(w, t.T(i18n.KeyChatInvalid)+": "+strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
		return
	}

	body, err := h.chat.Stream(r.Context(), &req, lang)
	if err != nil {
		var upErr *service.UpstreamError
		switch {
		case errors.As(err, &upErr) && upErr.Status == http.StatusTooManyRequests:
			h.metrics.ChatRequest("rate_limited")
			httputil.WriteTooManyRequests(w, t.T(i18n.KeyChatRateLimited))
		case errors.As(err, &upErr) && upErr.Status == http.StatusPaymentRequired:
			h.metrics.ChatRequest("unavailable")
			httputil.WriteError(w, http.StatusPaymentRequired, httputil.ErrCodeServiceUnavailable, t.T(i18n.KeyChatUnavailable))
		case errors.Is(err, service.ErrInvalidInput):
			h.metrics.ChatRequest("invalid")
			httputil.WriteBadRequest(w, t.T(i18n.KeyChatInvalid))
		default:
			h.metrics.ChatRequest("failed")
			h.logger.Error("chat upstream failed", "error", err)
			httputil.WriteInternalError(w, t.T(i18n.KeyChatFailed))
		}
		return
	}
	defer body.Close()

	h.metrics.ChatRequest("ok")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := copyFlushing(w, body); err != nil && r.Context().Err() == nil {
		h.logger.Warn("chat stream interrupted", "error", err)
	}
}

// copyFlushing copies src to w, flushing after every chunk so events reach
// the browser as they arrive.
func copyFlushing(w http.ResponseWriter, src io.Reader) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// NotifyArrival handles POST /functions/v1/notify-arrival.
func (h *FunctionsHandler) NotifyArrival(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFunctionBodyBytes)
	var req model.ArrivalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	req.ReservationID = strings.TrimSpace(req.ReservationID)
	if req.ReservationID == "" {
		httputil.WriteBadRequest(w, "reservation_id is required")
		return
	}
	req.Language = requestLanguage(r, req.Language)

	notified, err := h.arrival.NotifyArrival(r.Context(), &req)
	if err != nil {
		h.logger.Error("arrival fan-out failed", "reservation_id", req.ReservationID, "error", err)
		httputil.WriteInternalError(w, i18n.Lookup(req.Language).T(i18n.KeyInternalError))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.ArrivalResponse{Success: true, Notified: notified})
}

// PartnerRegister handles POST /functions/v1/partner-register. The body is
// optional.
func (h *FunctionsHandler) PartnerRegister(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFunctionBodyBytes)
	var req model.PartnerRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	req.Language = requestLanguage(r, req.Language)
	t := i18n.Lookup(req.Language)
	region := h.partner.ResolveRegion(req.Region)

	resp, status, err := h.partner.Register(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrPartnerTokenNotFound) {
			h.metrics.PartnerRegistration(region, "not_connected")
			httputil.WriteJSON(w, http.StatusNotFound, model.PartnerRegisterResponse{
				Success: false,
				Error:   t.T(i18n.KeyPartnerNotFound),
				Region:  region,
			})
			return
		}
		h.metrics.PartnerRegistration(region, "error")
		h.logger.Error("partner registration failed", "user_id", userID, "region", region, "error", err)
		httputil.WriteInternalError(w, t.T(i18n.KeyPartnerFailed))
		return
	}

	outcome := "ok"
	if !resp.Success {
		outcome = "rejected"
	}
	h.metrics.PartnerRegistration(resp.Region, outcome)
	httputil.WriteJSON(w, status, resp)
}

// requestLanguage picks the body language, then Accept-Language, then the
// default.
func requestLanguage(r *http.Request, bodyLang string) string {
	if code := strings.ToLower(strings.TrimSpace(bodyLang)); i18n.Supported(code) {
		return code
	}
	if code := i18n.FromAcceptLanguage(r.Header.Get("Accept-Language")); code != "" {
		return code
	}
	return i18n.Default
}
