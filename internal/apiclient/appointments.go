package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"teslabooking/internal/model"
)

// CreateAppointment books anonymously, so it also serves the booking
// wizard as its inserter.
func (c *Client) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	var a model.Appointment
	if err := c.do(ctx, http.MethodPost, "/rest/v1/appointments", req, &a, false); err != nil {
		return nil, err
	}
	return &a, nil
}

// History lists the appointments booked under email, the caller's own
// address when email is empty.
func (c *Client) History(ctx context.Context, email string) ([]model.Appointment, error) {
	path := "/rest/v1/appointments"
	if email != "" {
		path += "?email=" + url.QueryEscape(email)
	}
	var list []model.Appointment
	if err := c.do(ctx, http.MethodGet, path, nil, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}

// AdminList returns the dashboard list, optionally filtered by status.
func (c *Client) AdminList(ctx context.Context, status string, limit int) ([]model.Appointment, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/rest/v1/admin/appointments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list []model.Appointment
	if err := c.do(ctx, http.MethodGet, path, nil, &list, true); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id, status string) (*model.Appointment, error) {
	var a model.Appointment
	path := "/rest/v1/admin/appointments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPatch, path, model.UpdateStatusRequest{Status: status}, &a, true); err != nil {
		return nil, err
	}
	return &a, nil
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Chat sends the conversation and calls onDelta with every content fragment
// of the streamed answer. It returns the full answer once the stream ends.
func (c *Client) Chat(ctx context.Context, messages []model.ChatMessage, lang string, onDelta func(string)) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/functions/v1/chat", model.ChatRequest{Messages: messages, Language: lang}, false)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Partial or keep-alive payloads are skipped.
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			answer.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return answer.String(), fmt.Errorf("read chat stream: %w", err)
	}
	return answer.String(), nil
}
