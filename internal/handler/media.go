package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"teslabooking/internal/httputil"
	"teslabooking/internal/model"
	"teslabooking/internal/service"
	"teslabooking/internal/transport/http/middleware"
)

// PhotoStore uploads and lists appointment photos.
type PhotoStore interface {
	Enabled() bool
	UploadPhoto(ctx context.Context, appointmentID, uploaderID string, file multipart.File, header *multipart.FileHeader) (*model.AppointmentPhoto, error)
	ListPhotos(ctx context.Context, appointmentID string) ([]model.AppointmentPhoto, error)
}

type MediaHandler struct {
	photos PhotoStore
	logger *slog.Logger
}

func NewMediaHandler(photos PhotoStore) *MediaHandler {
	return &MediaHandler{
		photos: photos,
		logger: slog.Default().With("component", "media"),
	}
}

// UploadPhoto handles POST /rest/v1/appointments/{id}/photos
// Expects multipart/form-data with a "file" part.
func (h *MediaHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if !h.photos.Enabled() {
		httputil.WriteServiceUnavailable(w, model.CodeStorageDisabled, "Photo storage is not configured")
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	appointmentID := chi.URLParam(r, "id")

	// Slack for multipart framing on top of the image itself.
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxPhotoSizeBytes+1<<20)
	if err := r.ParseMultipartForm(model.MaxPhotoSizeBytes); err != nil {
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 10MB limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file is required")
		return
	}
	defer file.Close()

	photo, err := h.photos.UploadPhoto(r.Context(), appointmentID, userID, file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Photo exceeds 10MB limit")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
		case errors.Is(err, model.ErrAppointmentNotFound):
			httputil.WriteNotFound(w, "Appointment not found")
		case errors.Is(err, service.ErrStorageDisabled):
			httputil.WriteServiceUnavailable(w, model.CodeStorageDisabled, "Photo storage is not configured")
		default:
			h.logger.Error("upload photo failed", "appointment_id", appointmentID, "error", err)
			httputil.WriteInternalError(w, "Failed to upload photo")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, photo)
}

// ListPhotos handles GET /rest/v1/appointments/{id}/photos
func (h *MediaHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "id")
	photos, err := h.photos.ListPhotos(r.Context(), appointmentID)
	if err != nil {
		h.logger.Error("list photos failed", "appointment_id", appointmentID, "error", err)
		httputil.WriteInternalError(w, "Failed to load photos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, nonNil(photos))
}
