package service

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/messaging"
	webpush "github.com/SherClockHolmes/webpush-go"

	"teslabooking/internal/model"
)

func browserSubscription(t *testing.T, endpoint string) string {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(map[string]any{
		"endpoint": endpoint,
		"keys": map[string]string{
			"p256dh": base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			"auth":   base64.RawURLEncoding.EncodeToString(auth),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func TestWebPushSender_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
		wantAny bool
	}{
		{http.StatusCreated, nil, false},
		{http.StatusGone, model.ErrPushExpired, true},
		{http.StatusNotFound, model.ErrPushExpired, true},
		{http.StatusTooManyRequests, nil, true},
	}

	priv, pub, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatal(err)
	}

	for _, tt := range tests {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		sender := NewWebPushSender(pub, priv, "mailto:ops@example.com")
		sender.httpClient = srv.Client()

		sub := model.PushSubscription{Platform: model.PlatformWeb, DeviceToken: browserSubscription(t, srv.URL+"/push/abc")}
		err := sender.Send(context.Background(), sub, model.PushMessage{Title: "Hi", Body: "There"})
		srv.Close()

		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.wantErr)
		}
		if tt.wantAny && err == nil {
			t.Errorf("status %d: expected an error", tt.status)
		}
		if !tt.wantAny && err != nil {
			t.Errorf("status %d: unexpected error %v", tt.status, err)
		}
		if tt.status == http.StatusTooManyRequests && errors.Is(err, model.ErrPushExpired) {
			t.Error("429 must not be treated as expired")
		}
	}
}

type fakeMessenger struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeMessenger) Send(ctx context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	return "projects/p/messages/1", f.err
}

func TestFCMSender_BuildsMessage(t *testing.T) {
	fake := &fakeMessenger{}
	sender := &FCMSender{client: fake}

	err := sender.Send(context.Background(), model.PushSubscription{DeviceToken: "device-1", Platform: model.PlatformIOS},
		model.PushMessage{Title: "Arrived", Body: "R-1", Data: map[string]string{"reservation_id": "R-1"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("sent = %d", len(fake.sent))
	}
	m := fake.sent[0]
	if m.Token != "device-1" || m.Notification == nil || m.Notification.Title != "Arrived" {
		t.Errorf("message = %+v", m)
	}
	if m.Data["reservation_id"] != "R-1" {
		t.Errorf("data = %v", m.Data)
	}
}

func TestParseWebSubscription(t *testing.T) {
	if _, err := ParseWebSubscription(browserSubscription(t, "https://push.example/abc")); err != nil {
		t.Errorf("valid subscription rejected: %v", err)
	}
	for _, token := range []string{
		"not json",
		browserSubscription(t, "http://push.example/abc"),
		`{"endpoint":"https://push.example/abc","keys":{"auth":"x"}}`,
	} {
		if _, err := ParseWebSubscription(token); err == nil {
			t.Errorf("ParseWebSubscription(%q) should fail", token)
		}
	}
}
