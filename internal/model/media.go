package model

import (
	"errors"
	"time"
)

const (
	MaxPhotoSizeBytes = 10 * 1024 * 1024
	PhotoMaxDimension = 1600
	PhotoFolder       = "appointment-photos"
	PhotoExt          = ".jpg"
	PhotoCacheControl = "private, max-age=86400"
	PhotoJPEGQuality  = 85
)

// Supported image content types for upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
	CodeStorageDisabled  = "STORAGE_DISABLED"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)

// UploadResult is where an object ended up in the bucket.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// AppointmentPhoto is a damage photo attached to a booking.
type AppointmentPhoto struct {
	ID            string    `db:"id" json:"id"`
	AppointmentID string    `db:"appointment_id" json:"appointment_id"`
	ObjectKey     string    `db:"object_key" json:"-"`
	URL           string    `db:"url" json:"url"`
	UploadedBy    *string   `db:"uploaded_by" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
