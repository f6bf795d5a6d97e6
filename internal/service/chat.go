package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"teslabooking/internal/i18n"
	"teslabooking/internal/model"
)

// ChatService proxies conversations to the hosted model gateway.
type ChatService struct {
	gatewayURL string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewChatService(gatewayURL, apiKey, modelName string, httpClient *http.Client) *ChatService {
	if httpClient == nil {
		// No overall timeout: the response is a long-lived stream.
		httpClient = &http.Client{}
	}
	return &ChatService{
		gatewayURL: gatewayURL,
		apiKey:     apiKey,
		model:      modelName,
		httpClient: httpClient,
	}
}

// ValidateChat checks the message list before anything is sent upstream.
func ValidateChat(req *model.ChatRequest) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: messages must not be empty", ErrInvalidInput)
	}
	if len(req.Messages) > model.MaxChatMessages {
		return fmt.Errorf("%w: at most %d messages are allowed", ErrInvalidInput, model.MaxChatMessages)
	}
	for i, m := range req.Messages {
		if !model.IsValidChatRole(m.Role) {
			return fmt.Errorf("%w: message %d has invalid role %q", ErrInvalidInput, i, m.Role)
		}
		if utf8.RuneCountInString(m.Content) > model.MaxChatContentLength {
			return fmt.Errorf("%w: message %d exceeds %d characters", ErrInvalidInput, i, model.MaxChatContentLength)
		}
	}
	return nil
}

type gatewayRequest struct {
	Model    string              `json:"model"`
	Messages []model.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

// Stream validates req, prepends the system instruction for lang and opens
// the upstream event stream. The caller closes the returned body. Non-2xx
// answers are returned as *UpstreamError.
func (s *ChatService) Stream(ctx context.Context, req *model.ChatRequest, lang string) (io.ReadCloser, error) {
	if err := ValidateChat(req); err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessage, 0, len(req.Messages)+1)
	messages = append(messages, model.ChatMessage{
		Role:    model.ChatRoleSystem,
		Content: i18n.Lookup(lang).T(i18n.KeyChatSystem),
	})
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(gatewayRequest{Model: s.model, Messages: messages, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call chat gateway: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Service: "chat gateway", Status: resp.StatusCode, Body: string(detail)}
	}
	return resp.Body, nil
}
