package worker

import (
	"context"
	"fmt"
	"log/slog"

	"teslabooking/internal/i18n"
	"teslabooking/internal/metrics"
	"teslabooking/internal/model"
	"teslabooking/internal/queue"
)

// Notifier fans a push message out to an address list.
type Notifier interface {
	NotifyAdmins(ctx context.Context, msg model.PushMessage) (int, error)
	NotifyAppointment(ctx context.Context, appointmentID string, msg model.PushMessage) (int, error)
}

// Handler turns booking events into push notifications.
type Handler struct {
	notifier Notifier
	table    *i18n.Table
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewHandler creates a handler writing messages in lang.
func NewHandler(notifier Notifier, lang string, m *metrics.Metrics) *Handler {
	return &Handler{
		notifier: notifier,
		table:    i18n.Lookup(lang),
		metrics:  m,
		logger:   slog.Default().With("component", "worker"),
	}
}

// HandleEvent routes an event by type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.BookingEvent) error {
	var (
		sent int
		err  error
	)

	switch event.Type {
	case queue.EventAppointmentBooked:
		sent, err = h.notifier.NotifyAdmins(ctx, model.PushMessage{
			Title: h.table.T(i18n.KeyBookedTitle),
			Body:  h.table.Tf(i18n.KeyBookedBody, event.Service, event.Vehicle, event.Date, event.Time),
			Data: map[string]string{
				"type":           event.Type,
				"appointment_id": event.AppointmentID,
				"location":       event.Location,
			},
		})
	case queue.EventAppointmentStatusChanged:
		sent, err = h.notifier.NotifyAppointment(ctx, event.AppointmentID, model.PushMessage{
			Title: h.table.T(i18n.KeyStatusTitle),
			Body:  h.table.Tf(i18n.KeyStatusBody, event.Status),
			Data: map[string]string{
				"type":           event.Type,
				"appointment_id": event.AppointmentID,
				"status":         event.Status,
			},
		})
	default:
		err = fmt.Errorf("unknown event type: %s", event.Type)
	}

	h.metrics.BookingEvent(event.Type, err)
	if err != nil {
		return err
	}
	h.logger.Info("event handled", "type", event.Type, "appointment_id", event.AppointmentID, "notified", sent)
	return nil
}
