package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// tags are ntfy emoji short codes shown next to the title.
var tags = map[string][]string{
	"idle":   {"zzz"},
	"active": {"wave"},
	"hide":   {"see_no_evil"},
	"show":   {"eyes"},
	"batch":  {"bell"},
}

// NtfyClient publishes notifications to an ntfy server.
type NtfyClient struct {
	server     string
	topic      string
	httpClient *http.Client
}

// NewNtfyClient creates a client publishing to topic on server.
func NewNtfyClient(server, topic string) *NtfyClient {
	return &NtfyClient{
		server: server,
		topic:  topic,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ensure NtfyClient implements Notifier
var _ Notifier = (*NtfyClient)(nil)

type ntfyMessage struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}

// Send publishes a notification using ntfy's JSON API.
func (c *NtfyClient) Send(notification Notification) error {
	body, err := json.Marshal(ntfyMessage{
		Topic:   c.topic,
		Title:   notification.Title,
		Message: notification.Message,
		Tags:    tags[notification.Transition],
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
