package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, "invalid", map[string][]string{"confirmPassword": {"mismatch"}})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != ErrCodeValidation {
		t.Errorf("code = %q", body.Error.Code)
	}
	if got := body.Error.Fields["confirmPassword"]; len(got) != 1 || got[0] != "mismatch" {
		t.Errorf("fields = %v", body.Error.Fields)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded header ignored", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:5000", "1.1.1.1"},
		{"real ip header ignored", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.1.1.1:5000", "1.1.1.1"},
		{"remote addr", nil, "192.168.1.5:4321", "192.168.1.5"},
		{"ipv6 remote addr", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"rewritten without port", nil, "10.0.0.7", "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	if got := BearerToken(r); got != "" {
		t.Errorf("missing header: got %q", got)
	}
	r.Header.Set("Authorization", "bearer abc.def")
	if got := BearerToken(r); got != "abc.def" {
		t.Errorf("got %q, want abc.def", got)
	}
	r.Header.Set("Authorization", "Basic xyz")
	if got := BearerToken(r); got != "" {
		t.Errorf("basic auth: got %q", got)
	}
}
