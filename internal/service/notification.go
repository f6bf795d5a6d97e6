package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"teslabooking/internal/i18n"
	"teslabooking/internal/metrics"
	"teslabooking/internal/model"
	"teslabooking/internal/repository"
)

const (
	maxConcurrentPushes = 16
	pushTimeout         = 10 * time.Second
)

// NotificationService keeps the push address list and fans messages out to it.
type NotificationService struct {
	subs    repository.PushSubscriptionRepository
	sender  PushSender
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewNotificationService(subs repository.PushSubscriptionRepository, sender PushSender, m *metrics.Metrics) *NotificationService {
	return &NotificationService{
		subs:    subs,
		sender:  sender,
		metrics: m,
		logger:  slog.Default().With("component", "push"),
	}
}

// Register stores a device token. Without an appointment the device belongs
// to the caller as an admin, so only admins may register that way.
func (s *NotificationService) Register(ctx context.Context, userID string, isAdmin bool, req *model.RegisterSubscriptionRequest) (*model.PushSubscription, error) {
	if req.DeviceToken == "" {
		return nil, fmt.Errorf("%w: device_token is required", ErrInvalidInput)
	}
	if !model.IsValidPlatform(req.Platform) {
		return nil, fmt.Errorf("%w: platform must be ios, android or web", ErrInvalidInput)
	}
	if req.Platform == model.PlatformWeb {
		if _, err := ParseWebSubscription(req.DeviceToken); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	sub := &model.PushSubscription{
		DeviceToken: req.DeviceToken,
		Platform:    req.Platform,
	}
	if req.AppointmentID != nil && *req.AppointmentID != "" {
		sub.AppointmentID = req.AppointmentID
	} else {
		if !isAdmin {
			return nil, ErrForbidden
		}
		sub.UserID = &userID
	}

	if err := s.subs.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *NotificationService) Remove(ctx context.Context, deviceToken string) error {
	if deviceToken == "" {
		return fmt.Errorf("%w: device_token is required", ErrInvalidInput)
	}
	return s.subs.Delete(ctx, deviceToken)
}

// NotifyArrival tells every admin device that a customer has arrived and
// returns the number of devices a push was attempted for.
func (s *NotificationService) NotifyArrival(ctx context.Context, req *model.ArrivalRequest) (int, error) {
	t := i18n.Lookup(req.Language)
	msg := model.PushMessage{
		Title: t.T(i18n.KeyArrivalTitle),
		Body:  t.Tf(i18n.KeyArrivalBody, req.ReservationID),
		Data: map[string]string{
			"type":           "arrival",
			"reservation_id": req.ReservationID,
			"arrival_type":   req.ArrivalType,
		},
	}
	return s.NotifyAdmins(ctx, msg)
}

// NotifyAdmins pushes msg to every admin device.
func (s *NotificationService) NotifyAdmins(ctx context.Context, msg model.PushMessage) (int, error) {
	subs, err := s.subs.ListAdmin(ctx)
	if err != nil {
		return 0, fmt.Errorf("load admin subscriptions: %w", err)
	}
	return s.FanOut(ctx, subs, msg), nil
}

// NotifyAppointment pushes msg to the devices registered for an appointment.
func (s *NotificationService) NotifyAppointment(ctx context.Context, appointmentID string, msg model.PushMessage) (int, error) {
	subs, err := s.subs.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("load appointment subscriptions: %w", err)
	}
	return s.FanOut(ctx, subs, msg), nil
}

// FanOut sends msg to every subscription concurrently. Each attempt has its
// own timeout and its failure is logged and isolated; all attempts are
// awaited. It returns the number of attempts, successful or not. Expired
// subscriptions are removed.
func (s *NotificationService) FanOut(ctx context.Context, subs []model.PushSubscription, msg model.PushMessage) int {
	if len(subs) == 0 {
		return 0
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentPushes)

	failures := make([]error, len(subs))
	for i, sub := range subs {
		g.Go(func() error {
			failures[i] = s.sendOne(ctx, sub, msg)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for i, err := range failures {
		if err == nil {
			continue
		}
		failed++
		s.logger.Warn("push failed",
			"subscription_id", subs[i].ID,
			"platform", subs[i].Platform,
			"error", err,
		)
		if errors.Is(err, model.ErrPushExpired) {
			if err := s.subs.Delete(context.WithoutCancel(ctx), subs[i].DeviceToken); err != nil {
				s.logger.Warn("remove expired subscription failed", "subscription_id", subs[i].ID, "error", err)
			}
		}
	}
	s.logger.Info("push fan-out finished", "attempted", len(subs), "failed", failed)
	return len(subs)
}

func (s *NotificationService) sendOne(ctx context.Context, sub model.PushSubscription, msg model.PushMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("push sender panicked: %v", r)
		}
		s.metrics.PushAttempt(sub.Platform, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	return s.sender.Send(ctx, sub, msg)
}
