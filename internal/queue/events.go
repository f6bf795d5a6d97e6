package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types for the booking stream
const (
	EventAppointmentBooked        = "appointment_booked"
	EventAppointmentStatusChanged = "appointment_status_changed"
)

const StreamBookings = "stream:bookings"

const ConsumerGroupBookings = "booking_workers"

// BookingEvent is published whenever an appointment is created or changes
// status. It carries enough of the appointment to build a push message
// without a database read.
type BookingEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	AppointmentID string `json:"appointment_id"`
	Service       string `json:"service,omitempty"`
	Vehicle       string `json:"vehicle,omitempty"`
	Date          string `json:"appointment_date,omitempty"`
	Time          string `json:"appointment_time,omitempty"`
	Location      string `json:"location,omitempty"`
	Status        string `json:"status,omitempty"`
}

func NewAppointmentBookedEvent(id, service, vehicle, date, slot, location string) BookingEvent {
	return BookingEvent{
		Type:          EventAppointmentBooked,
		Timestamp:     time.Now().Unix(),
		AppointmentID: id,
		Service:       service,
		Vehicle:       vehicle,
		Date:          date,
		Time:          slot,
		Location:      location,
	}
}

func NewStatusChangedEvent(id, status string) BookingEvent {
	return BookingEvent{
		Type:          EventAppointmentStatusChanged,
		Timestamp:     time.Now().Unix(),
		AppointmentID: id,
		Status:        status,
	}
}

// ToMap converts the event to XADD field-value pairs. The JSON body lives in
// the "data" field.
func (e BookingEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseBookingEvent parses a BookingEvent from stream message values.
func ParseBookingEvent(values map[string]interface{}) (BookingEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return BookingEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event BookingEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return BookingEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.AppointmentID == "" {
		return BookingEvent{}, fmt.Errorf("event without appointment_id")
	}
	return event, nil
}
