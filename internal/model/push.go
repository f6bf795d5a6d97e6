package model

import (
	"errors"
	"time"
)

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)

// PushSubscription is a device address for fan-out. Exactly one of
// AppointmentID (customer device) and UserID (admin device) is set.
type PushSubscription struct {
	ID            int64     `db:"id" json:"id"`
	AppointmentID *string   `db:"appointment_id" json:"appointment_id,omitempty"`
	UserID        *string   `db:"user_id" json:"-"`
	DeviceToken   string    `db:"device_token" json:"-"`
	Platform      string    `db:"platform" json:"platform"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterSubscriptionRequest is the body of POST /rest/v1/push-subscriptions.
type RegisterSubscriptionRequest struct {
	AppointmentID *string `json:"appointment_id"`
	DeviceToken   string  `json:"device_token"`
	Platform      string  `json:"platform"`
}

// RemoveSubscriptionRequest is the body of DELETE /rest/v1/push-subscriptions.
type RemoveSubscriptionRequest struct {
	DeviceToken string `json:"device_token"`
}

// PushMessage is what a sender delivers to one device.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// ArrivalRequest is the body of POST /functions/v1/notify-arrival.
type ArrivalRequest struct {
	ReservationID string `json:"reservation_id"`
	ArrivalType   string `json:"arrival_type"`
	Language      string `json:"language"`
}

// ArrivalResponse reports how many admin devices a push was attempted for.
type ArrivalResponse struct {
	Success  bool `json:"success"`
	Notified int  `json:"notified"`
}

func IsValidPlatform(platform string) bool {
	switch platform {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

var (
	ErrPushExpired         = errors.New("push subscription expired")
	ErrUnsupportedPlatform = errors.New("no sender configured for platform")
)
