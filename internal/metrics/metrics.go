// Package metrics defines the Prometheus counters of the booking service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	appointmentsCreated  prometheus.Counter
	pushAttempts         *prometheus.CounterVec
	chatRequests         *prometheus.CounterVec
	partnerRegistrations *prometheus.CounterVec
	bookingEvents        *prometheus.CounterVec
}

// New creates the counters on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		appointmentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_appointments_created_total",
			Help: "Appointments inserted through the booking API.",
		}),
		pushAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_push_attempts_total",
			Help: "Push notification attempts by platform and result.",
		}, []string{"platform", "result"}),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_chat_requests_total",
			Help: "Chat proxy requests by outcome.",
		}, []string{"outcome"}),
		partnerRegistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_partner_registrations_total",
			Help: "Partner registration proxy calls by region and outcome.",
		}, []string{"region", "outcome"}),
		bookingEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_events_processed_total",
			Help: "Booking stream events handled by the worker.",
		}, []string{"type", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.appointmentsCreated,
		m.pushAttempts,
		m.chatRequests,
		m.partnerRegistrations,
		m.bookingEvents,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AppointmentCreated() {
	if m == nil {
		return
	}
	m.appointmentsCreated.Inc()
}

func (m *Metrics) PushAttempt(platform string, err error) {
	if m == nil {
		return
	}
	m.pushAttempts.WithLabelValues(platform, result(err)).Inc()
}

func (m *Metrics) ChatRequest(outcome string) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PartnerRegistration(region, outcome string) {
	if m == nil {
		return
	}
	m.partnerRegistrations.WithLabelValues(region, outcome).Inc()
}

func (m *Metrics) BookingEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.bookingEvents.WithLabelValues(eventType, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
