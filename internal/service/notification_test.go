package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
)

func strPtr(s string) *string { return &s }

func TestFanOut_IsolatesFailures(t *testing.T) {
	subs := []model.PushSubscription{
		{ID: 1, DeviceToken: "tok-1", Platform: model.PlatformAndroid},
		{ID: 2, DeviceToken: "tok-2", Platform: model.PlatformIOS},
		{ID: 3, DeviceToken: "tok-3", Platform: model.PlatformAndroid},
	}

	tests := []struct {
		name   string
		second func() error
	}{
		{"second returns error", func() error { return errors.New("503 from provider") }},
		{"second panics", func() error { panic("sender bug") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			attempted := map[string]bool{}
			sender := senderFunc(func(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
				mu.Lock()
				attempted[sub.DeviceToken] = true
				mu.Unlock()
				if sub.DeviceToken == "tok-2" {
					return tt.second()
				}
				return nil
			})
			svc := NewNotificationService(&mockSubscriptionRepository{}, sender, nil)

			n := svc.FanOut(context.Background(), subs, model.PushMessage{Title: "t"})
			if n != 3 {
				t.Errorf("FanOut = %d, want 3", n)
			}
			for _, sub := range subs {
				if !attempted[sub.DeviceToken] {
					t.Errorf("%s was not attempted", sub.DeviceToken)
				}
			}
		})
	}
}

func TestFanOut_RemovesExpiredSubscriptions(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	sender := senderFunc(func(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
		if sub.DeviceToken == "gone" {
			return model.ErrPushExpired
		}
		return errors.New("temporary")
	})
	svc := NewNotificationService(repo, sender, nil)

	svc.FanOut(context.Background(), []model.PushSubscription{
		{ID: 1, DeviceToken: "gone", Platform: model.PlatformWeb},
		{ID: 2, DeviceToken: "flaky", Platform: model.PlatformIOS},
	}, model.PushMessage{})

	if len(repo.deleted) != 1 || repo.deleted[0] != "gone" {
		t.Errorf("deleted = %v, want only the expired token", repo.deleted)
	}
}

func TestNotifyArrival_ReachesAdminsInRequestedLanguage(t *testing.T) {
	repo := &mockSubscriptionRepository{
		admin: []model.PushSubscription{
			{ID: 1, DeviceToken: "a", Platform: model.PlatformIOS},
			{ID: 2, DeviceToken: "b", Platform: model.PlatformAndroid},
		},
	}
	var mu sync.Mutex
	var got []model.PushMessage
	sender := senderFunc(func(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) error {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
		return nil
	})
	svc := NewNotificationService(repo, sender, nil)

	n, err := svc.NotifyArrival(context.Background(), &model.ArrivalRequest{
		ReservationID: "R-42",
		ArrivalType:   "geofence",
		Language:      i18n.English,
	})
	if err != nil {
		t.Fatalf("NotifyArrival: %v", err)
	}
	if n != 2 || len(got) != 2 {
		t.Fatalf("notified = %d, sent = %d, want 2", n, len(got))
	}
	en := i18n.Lookup(i18n.English)
	if got[0].Title != en.T(i18n.KeyArrivalTitle) {
		t.Errorf("title = %q", got[0].Title)
	}
	if got[0].Data["reservation_id"] != "R-42" {
		t.Errorf("data = %v", got[0].Data)
	}
}

func TestNotifyArrival_NoAdminsIsZero(t *testing.T) {
	svc := NewNotificationService(&mockSubscriptionRepository{}, senderFunc(func(context.Context, model.PushSubscription, model.PushMessage) error {
		t.Error("nothing should be sent")
		return nil
	}), nil)

	n, err := svc.NotifyArrival(context.Background(), &model.ArrivalRequest{ReservationID: "R-1"})
	if err != nil || n != 0 {
		t.Errorf("NotifyArrival = %d, %v; want 0, nil", n, err)
	}
}

func TestRegister(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	svc := NewNotificationService(repo, nil, nil)
	ctx := context.Background()

	sub, err := svc.Register(ctx, "u1", false, &model.RegisterSubscriptionRequest{
		AppointmentID: strPtr("a1"),
		DeviceToken:   "fcm-token",
		Platform:      model.PlatformAndroid,
	})
	if err != nil {
		t.Fatalf("customer register: %v", err)
	}
	if sub.UserID != nil || *sub.AppointmentID != "a1" {
		t.Errorf("sub = %+v", sub)
	}

	_, err = svc.Register(ctx, "u1", false, &model.RegisterSubscriptionRequest{DeviceToken: "x", Platform: model.PlatformIOS})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin device registration: got %v, want ErrForbidden", err)
	}

	sub, err = svc.Register(ctx, "admin-1", true, &model.RegisterSubscriptionRequest{DeviceToken: "x", Platform: model.PlatformIOS})
	if err != nil || sub.UserID == nil || *sub.UserID != "admin-1" {
		t.Errorf("admin register = %+v, %v", sub, err)
	}

	bad := []*model.RegisterSubscriptionRequest{
		{DeviceToken: "", Platform: model.PlatformIOS},
		{DeviceToken: "x", Platform: "blackberry"},
		{DeviceToken: `{"endpoint":"http://insecure"}`, Platform: model.PlatformWeb},
	}
	for _, req := range bad {
		if _, err := svc.Register(ctx, "admin-1", true, req); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Register(%+v) = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestPlatformSender_UnknownPlatform(t *testing.T) {
	ps := PlatformSender{model.PlatformWeb: senderFunc(func(context.Context, model.PushSubscription, model.PushMessage) error { return nil })}
	err := ps.Send(context.Background(), model.PushSubscription{Platform: model.PlatformIOS}, model.PushMessage{})
	if !errors.Is(err, model.ErrUnsupportedPlatform) {
		t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
	}
	if err := ps.Send(context.Background(), model.PushSubscription{Platform: model.PlatformWeb}, model.PushMessage{}); err != nil {
		t.Errorf("web send: %v", err)
	}
}
