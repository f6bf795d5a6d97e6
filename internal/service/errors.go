package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput wraps request problems the caller can fix.
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	// ErrStorageDisabled is returned by media operations without a bucket.
	ErrStorageDisabled = errors.New("photo storage is not configured")
)

// UpstreamError is a non-2xx answer from a third-party API. Body is kept for
// the server log and never shown to clients as is.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
}
