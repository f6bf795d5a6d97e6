package model

import (
	"errors"
	"time"
)

// Appointment statuses
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
)

// Date and time layouts used on the wire.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var validStatuses = map[string]struct{}{
	StatusPending:     {},
	StatusConfirmed:   {},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusRescheduled: {},
}

// Services offered by the service centers.
var Services = []string{
	"maintenance",
	"tire_service",
	"brake_service",
	"battery_check",
	"software_update",
	"bodywork",
	"glass_repair",
	"diagnostics",
}

// Locations are the service centers that accept bookings.
var Locations = []string{
	"budapest",
	"gyor",
	"debrecen",
	"szeged",
}

// TimeSlots are the bookable start times of a day.
var TimeSlots = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00",
}

// Appointment is a service booking.
type Appointment struct {
	ID              string    `db:"id" json:"id"`
	Service         string    `db:"service" json:"service"`
	Vehicle         string    `db:"vehicle" json:"vehicle"`
	AppointmentDate time.Time `db:"appointment_date" json:"-"`
	AppointmentTime string    `db:"appointment_time" json:"appointment_time"`
	Location        string    `db:"location" json:"location"`
	Email           string    `db:"email" json:"email"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	// Date is AppointmentDate rendered with DateLayout for JSON.
	Date string `db:"-" json:"appointment_date"`
}

// FillDate renders AppointmentDate into Date after a scan.
func (a *Appointment) FillDate() {
	a.Date = a.AppointmentDate.Format(DateLayout)
}

// CreateAppointmentRequest is the body of POST /rest/v1/appointments.
type CreateAppointmentRequest struct {
	Service         string `json:"service"`
	Vehicle         string `json:"vehicle"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Location        string `json:"location"`
	Email           string `json:"email"`
}

// UpdateStatusRequest is the body of PATCH /rest/v1/admin/appointments/{id}.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func IsValidStatus(status string) bool {
	_, ok := validStatuses[status]
	return ok
}

func IsValidService(service string) bool {
	return contains(Services, service)
}

func IsValidLocation(location string) bool {
	return contains(Locations, location)
}

func IsValidTimeSlot(slot string) bool {
	return contains(TimeSlots, slot)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrInvalidAppointment  = errors.New("invalid appointment")
	ErrForbiddenEmail      = errors.New("history of another email requested")
)
