package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
)

func userMessages(n int, content string) []model.ChatMessage {
	out := make([]model.ChatMessage, n)
	for i := range out {
		out[i] = model.ChatMessage{Role: model.ChatRoleUser, Content: content}
	}
	return out
}

func TestChatService_RejectsBeforeCallingUpstream(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	svc := NewChatService(srv.URL, "key", "test-model", srv.Client())

	tests := []struct {
		name string
		req  *model.ChatRequest
	}{
		{"empty", &model.ChatRequest{}},
		{"51 messages", &model.ChatRequest{Messages: userMessages(51, "hi")}},
		{"10001 characters", &model.ChatRequest{Messages: userMessages(1, strings.Repeat("a", 10001))}},
		{"unknown role", &model.ChatRequest{Messages: []model.ChatMessage{{Role: "tool", Content: "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Stream(context.Background(), tt.req, i18n.English)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	if n := hits.Load(); n != 0 {
		t.Errorf("upstream called %d times, want 0", n)
	}
}

func TestValidateChat_Boundaries(t *testing.T) {
	if err := ValidateChat(&model.ChatRequest{Messages: userMessages(50, "hi")}); err != nil {
		t.Errorf("50 messages should pass: %v", err)
	}
	// Length is counted in characters, not bytes.
	if err := ValidateChat(&model.ChatRequest{Messages: userMessages(1, strings.Repeat("é", 10000))}); err != nil {
		t.Errorf("10000 characters should pass: %v", err)
	}
}

func TestChatService_StreamsUpstreamBody(t *testing.T) {
	var got gatewayRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer srv.Close()

	svc := NewChatService(srv.URL, "secret-key", "test-model", srv.Client())
	body, err := svc.Stream(context.Background(), &model.ChatRequest{Messages: userMessages(2, "hi")}, i18n.Hungarian)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if !strings.Contains(string(data), "[DONE]") {
		t.Errorf("body = %q", data)
	}
	if auth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if !got.Stream || got.Model != "test-model" {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 3 || got.Messages[0].Role != model.ChatRoleSystem {
		t.Fatalf("messages = %+v, want system prompt first", got.Messages)
	}
	if got.Messages[0].Content != i18n.Lookup(i18n.Hungarian).T(i18n.KeyChatSystem) {
		t.Errorf("system prompt not localized: %q", got.Messages[0].Content)
	}
}

func TestChatService_UpstreamErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusPaymentRequired, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream says no", status)
		}))

		svc := NewChatService(srv.URL, "key", "m", srv.Client())
		_, err := svc.Stream(context.Background(), &model.ChatRequest{Messages: userMessages(1, "hi")}, i18n.English)
		srv.Close()

		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("status %d: err = %v, want *UpstreamError", status, err)
		}
		if upErr.Status != status {
			t.Errorf("Status = %d, want %d", upErr.Status, status)
		}
	}
}
