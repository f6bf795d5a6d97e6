// Package booking holds the state of the linear booking flow:
// service, vehicle, schedule, contact, then a single submit.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"teslabooking/internal/model"
)

// Step is a stage of the wizard.
type Step int

const (
	StepService Step = iota
	StepVehicle
	StepSchedule
	StepContact
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepService:
		return "service"
	case StepVehicle:
		return "vehicle"
	case StepSchedule:
		return "schedule"
	case StepContact:
		return "contact"
	case StepConfirmed:
		return "confirmed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrStepIncomplete = errors.New("current step is incomplete")
	ErrNotReady       = errors.New("wizard is not on the contact step")
	ErrSubmitted      = errors.New("booking already submitted")
	ErrInvalidChoice  = errors.New("invalid choice")
)

// Selection is everything chosen so far.
type Selection struct {
	Service  string
	Vehicle  string
	Date     string
	Time     string
	Location string
	Email    string
}

// Inserter stores one appointment.
type Inserter interface {
	CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error)
}

// Notifier is told about every successful booking.
type Notifier interface {
	Booked(a *model.Appointment)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(a *model.Appointment)

func (f NotifierFunc) Booked(a *model.Appointment) { f(a) }

// Wizard is the booking flow of one user. It is not safe for concurrent use.
type Wizard struct {
	inserter Inserter
	notifier Notifier
	now      func() time.Time

	step      Step
	sel       Selection
	confirmed *model.Appointment
	lastErr   error
}

// NewWizard starts a wizard on the service step. notifier may be nil.
func NewWizard(inserter Inserter, notifier Notifier) *Wizard {
	return &Wizard{inserter: inserter, notifier: notifier, now: time.Now}
}

func (w *Wizard) Step() Step { return w.step }

func (w *Wizard) Selection() Selection { return w.sel }

// Confirmation returns the stored appointment once submitted.
func (w *Wizard) Confirmation() *model.Appointment { return w.confirmed }

// Err returns the error of the last failed submit, nil after a success.
func (w *Wizard) Err() error { return w.lastErr }

func (w *Wizard) SetService(service string) error {
	if !model.IsValidService(service) {
		return fmt.Errorf("%w: service %q", ErrInvalidChoice, service)
	}
	w.sel.Service = service
	return nil
}

func (w *Wizard) SetVehicle(vehicle string) error {
	if vehicle == "" {
		return fmt.Errorf("%w: empty vehicle", ErrInvalidChoice)
	}
	w.sel.Vehicle = vehicle
	return nil
}

// SetSchedule sets date (YYYY-MM-DD, today or later), slot and location.
func (w *Wizard) SetSchedule(date, slot, location string) error {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidChoice, date)
	}
	today, _ := time.Parse(model.DateLayout, w.now().Format(model.DateLayout))
	if d.Before(today) {
		return fmt.Errorf("%w: date %s is in the past", ErrInvalidChoice, date)
	}
	if !model.IsValidTimeSlot(slot) {
		return fmt.Errorf("%w: time %q", ErrInvalidChoice, slot)
	}
	if !model.IsValidLocation(location) {
		return fmt.Errorf("%w: location %q", ErrInvalidChoice, location)
	}
	w.sel.Date, w.sel.Time, w.sel.Location = date, slot, location
	return nil
}

func (w *Wizard) SetContact(email string) error {
	email = model.NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: empty email", ErrInvalidChoice)
	}
	w.sel.Email = email
	return nil
}

// Next advances when the current step has its values.
func (w *Wizard) Next() error {
	if w.step >= StepContact {
		return ErrStepIncomplete
	}
	if !w.complete(w.step) {
		return fmt.Errorf("%w: %s", ErrStepIncomplete, w.step)
	}
	w.step++
	return nil
}

// Back returns to the previous step keeping every chosen value.
func (w *Wizard) Back() {
	if w.step > StepService && w.step < StepConfirmed {
		w.step--
	}
}

// Submit inserts the appointment once. On failure the wizard stays on the
// contact step with its values so the user can try again.
func (w *Wizard) Submit(ctx context.Context) (*model.Appointment, error) {
	if w.step == StepConfirmed {
		return nil, ErrSubmitted
	}
	if w.step != StepContact {
		return nil, ErrNotReady
	}
	if !w.complete(StepContact) {
		return nil, fmt.Errorf("%w: %s", ErrStepIncomplete, StepContact)
	}

	a, err := w.inserter.CreateAppointment(ctx, &model.CreateAppointmentRequest{
		Service:         w.sel.Service,
		Vehicle:         w.sel.Vehicle,
		AppointmentDate: w.sel.Date,
		AppointmentTime: w.sel.Time,
		Location:        w.sel.Location,
		Email:           w.sel.Email,
	})
	if err != nil {
		w.lastErr = err
		return nil, err
	}

	w.lastErr = nil
	w.confirmed = a
	w.step = StepConfirmed
	if w.notifier != nil {
		w.notifier.Booked(a)
	}
	return a, nil
}

func (w *Wizard) complete(step Step) bool {
	switch step {
	case StepService:
		return w.sel.Service != ""
	case StepVehicle:
		return w.sel.Vehicle != ""
	case StepSchedule:
		return w.sel.Date != "" && w.sel.Time != "" && w.sel.Location != ""
	case StepContact:
		return w.sel.Email != ""
	}
	return false
}
