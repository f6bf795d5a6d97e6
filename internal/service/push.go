package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	webpush "github.com/SherClockHolmes/webpush-go"
	"google.golang.org/api/option"

	"teslabooking/internal/model"
)

// PushSender delivers one message to one subscription.
type PushSender interface {
	Send(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error
}

// PlatformSender dispatches to the sender registered for a subscription's
// platform.
type PlatformSender map[string]PushSender

func (p PlatformSender) Send(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
	sender, ok := p[sub.Platform]
	if !ok || sender == nil {
		return fmt.Errorf("%w: %s", model.ErrUnsupportedPlatform, sub.Platform)
	}
	return sender.Send(ctx, sub, msg)
}

// fcmMessenger is the part of *messaging.Client the sender uses.
type fcmMessenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers to iOS and Android devices through Firebase Cloud
// Messaging.
type FCMSender struct {
	client fcmMessenger
}

// NewFCMSender builds a messaging client from service-account fields. The
// private key may carry literal "\n" sequences as found in .env files.
func NewFCMSender(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMSender, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   projectID,
		"private_key":  privateKey,
		"client_email": clientEmail,
		"token_uri":    "https://oauth2.googleapis.com/token",
	})
	if err != nil {
		return nil, fmt.Errorf("encode firebase credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	slog.Info("fcm sender initialized", "project_id", projectID)
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) Send(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
	message := &messaging.Message{
		Token: sub.DeviceToken,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}

	if _, err := s.client.Send(ctx, message); err != nil {
		if messaging.IsUnregistered(err) {
			return model.ErrPushExpired
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// webPushPayload is what the service worker receives.
type webPushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// WebPushSender delivers to browsers with VAPID-signed Web Push. The device
// token of a web subscription is the browser's PushSubscription JSON.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subject    string
	httpClient webpush.HTTPClient
}

func NewWebPushSender(publicKey, privateKey, subject string) *WebPushSender {
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		httpClient: http.DefaultClient,
	}
}

// VAPIDPublicKey returns the key browsers subscribe with.
func (s *WebPushSender) VAPIDPublicKey() string {
	return s.publicKey
}

func (s *WebPushSender) Send(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
	target, err := ParseWebSubscription(sub.DeviceToken)
	if err != nil {
		return err
	}

	data, err := json.Marshal(webPushPayload{Title: msg.Title, Body: msg.Body, Data: msg.Data})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, target, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return model.ErrPushExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

var errInvalidWebSubscription = errors.New("invalid web push subscription")

// ParseWebSubscription decodes and checks a browser PushSubscription JSON.
func ParseWebSubscription(token string) (*webpush.Subscription, error) {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(token), &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidWebSubscription, err)
	}
	if !strings.HasPrefix(sub.Endpoint, "https://") || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return nil, errInvalidWebSubscription
	}
	return &sub, nil
}
