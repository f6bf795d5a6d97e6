package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"teslabooking/internal/model"
	"teslabooking/internal/service"
	"teslabooking/internal/transport/http/middleware"
)

type fakeAppointments struct {
	createFn    func(req *model.CreateAppointmentRequest) (*model.Appointment, error)
	historyArgs struct {
		caller  string
		isAdmin bool
		email   string
	}
	historyErr error
	updateErr  error
}

func (f *fakeAppointments) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	return f.createFn(req)
}

func (f *fakeAppointments) History(ctx context.Context, callerEmail string, isAdmin bool, email string) ([]model.Appointment, error) {
	f.historyArgs.caller, f.historyArgs.isAdmin, f.historyArgs.email = callerEmail, isAdmin, email
	return nil, f.historyErr
}

func (f *fakeAppointments) AdminList(ctx context.Context, status string, limit int) ([]model.Appointment, error) {
	return []model.Appointment{{ID: "a1", Status: status}}, nil
}

func (f *fakeAppointments) UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &model.Appointment{ID: id, Status: status}, nil
}

type adminFunc func(ctx context.Context, userID string) (bool, error)

func (f adminFunc) IsAdmin(ctx context.Context, userID string) (bool, error) { return f(ctx, userID) }

func notAdmin() adminFunc {
	return func(context.Context, string) (bool, error) { return false, nil }
}

func TestCreateAppointment(t *testing.T) {
	appts := &fakeAppointments{createFn: func(req *model.CreateAppointmentRequest) (*model.Appointment, error) {
		if req.Service == "" {
			return nil, fmt.Errorf("%w: unknown service", model.ErrInvalidAppointment)
		}
		return &model.Appointment{ID: "a1", Service: req.Service, Status: model.StatusPending}, nil
	}}
	h := NewAppointmentHandler(appts, notAdmin())

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/appointments", strings.NewReader(`{"service":"maintenance"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var got model.Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "a1" || got.Status != model.StatusPending {
		t.Errorf("appointment = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/appointments", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid booking status = %d, want 400", rec.Code)
	}
}

func TestHistoryUsesCallerIdentity(t *testing.T) {
	appts := &fakeAppointments{}
	h := NewAppointmentHandler(appts, adminFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("db down")
	}))

	req := httptest.NewRequest(http.MethodGet, "/rest/v1/appointments?email=other@example.com", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "u1", "driver@example.com"))
	rec := httptest.NewRecorder()
	h.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty history should encode as [], got %q", rec.Body.String())
	}
	if appts.historyArgs.caller != "driver@example.com" || appts.historyArgs.isAdmin {
		t.Errorf("history args = %+v", appts.historyArgs)
	}
	if appts.historyArgs.email != "other@example.com" {
		t.Errorf("email filter = %q", appts.historyArgs.email)
	}
}

func TestHistoryForbidden(t *testing.T) {
	h := NewAppointmentHandler(&fakeAppointments{historyErr: model.ErrForbiddenEmail}, notAdmin())

	req := httptest.NewRequest(http.MethodGet, "/rest/v1/appointments?email=other@example.com", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), "u1", "driver@example.com"))
	rec := httptest.NewRecorder()
	h.History(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAdminListRejectsBadLimit(t *testing.T) {
	h := NewAppointmentHandler(&fakeAppointments{}, notAdmin())
	rec := httptest.NewRecorder()
	h.AdminList(rec, httptest.NewRequest(http.MethodGet, "/rest/v1/admin/appointments?limit=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"bad status", fmt.Errorf("%w: unknown status", service.ErrInvalidInput), http.StatusBadRequest},
		{"missing", model.ErrAppointmentNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Patch("/admin/appointments/{id}", NewAppointmentHandler(&fakeAppointments{updateErr: tt.err}, notAdmin()).UpdateStatus)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/admin/appointments/a1", strings.NewReader(`{"status":"confirmed"}`)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
