package notification_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/idlewatch/pkg/notification"
)

func TestNtfyClient_Send(t *testing.T) {
	tests := []struct {
		name         string
		notification notification.Notification
		serverFunc   func(t *testing.T) http.HandlerFunc
		wantErr      bool
		errContains  string
	}{
		{
			name: "successful send",
			notification: notification.Notification{
				Title:      "idlewatch: idle",
				Message:    "No input after 2m0s active",
				Time:       time.Now(),
				Transition: "idle",
			},
			serverFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					if r.Method != http.MethodPost {
						t.Errorf("Method = %v, want POST", r.Method)
					}
					if r.URL.Path != "/" {
						t.Errorf("Path = %v, want /", r.URL.Path)
					}
					if ct := r.Header.Get("Content-Type"); ct != "application/json" {
						t.Errorf("Content-Type = %q", ct)
					}

					body, _ := io.ReadAll(r.Body)
					var payload map[string]interface{}
					if err := json.Unmarshal(body, &payload); err != nil {
						t.Errorf("Failed to unmarshal body: %v", err)
					}

					if payload["topic"] != "test-topic" {
						t.Errorf("Topic = %v, want test-topic", payload["topic"])
					}
					if payload["title"] != "idlewatch: idle" {
						t.Errorf("Title = %v, want idlewatch: idle", payload["title"])
					}
					if !reflect.DeepEqual(payload["tags"], []interface{}{"zzz"}) {
						t.Errorf("Tags = %v, want [zzz]", payload["tags"])
					}

					w.WriteHeader(http.StatusOK)
					_, _ = fmt.Fprint(w, `{"id":"test123"}`)
				}
			},
			wantErr: false,
		},
		{
			name: "server error",
			notification: notification.Notification{
				Title:   "Test",
				Message: "Test",
			},
			serverFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = fmt.Fprint(w, "Internal Server Error")
				}
			},
			wantErr:     true,
			errContains: "ntfy returned status 500: Internal Server Error",
		},
		{
			name: "rate limit error",
			notification: notification.Notification{
				Title:   "Test",
				Message: "Test",
			},
			serverFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusTooManyRequests)
					_, _ = fmt.Fprint(w, "Rate limited")
				}
			},
			wantErr:     true,
			errContains: "ntfy returned status 429",
		},
		{
			name: "authentication error",
			notification: notification.Notification{
				Title:   "Test",
				Message: "Test",
			},
			serverFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = fmt.Fprint(w, "Unauthorized")
				}
			},
			wantErr:     true,
			errContains: "ntfy returned status 401",
		},
		{
			name:         "empty notification fields",
			notification: notification.Notification{},
			serverFunc: func(t *testing.T) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					body, _ := io.ReadAll(r.Body)
					var payload map[string]interface{}
					_ = json.Unmarshal(body, &payload)

					if msg, _ := payload["message"].(string); msg != "" {
						t.Errorf("Message = %v, want empty string", msg)
					}
					if _, ok := payload["tags"]; ok {
						t.Error("tags should be omitted without a transition")
					}

					w.WriteHeader(http.StatusOK)
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.serverFunc(t))
			defer server.Close()

			client := notification.NewNtfyClient(server.URL, "test-topic")

			err := client.Send(tt.notification)

			if (err != nil) != tt.wantErr {
				t.Errorf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Error = %v, want to contain %v", err, tt.errContains)
			}
		})
	}
}

func TestNtfyClient_SendNetworkError(t *testing.T) {
	client := notification.NewNtfyClient("http://localhost:0", "test-topic")

	if err := client.Send(notification.Notification{Title: "Test", Message: "Test"}); err == nil {
		t.Error("Expected error for network failure")
	}
}

func TestNtfyClient_SendInvalidURL(t *testing.T) {
	client := notification.NewNtfyClient("://invalid-url", "test-topic")

	if err := client.Send(notification.Notification{Title: "Test", Message: "Test"}); err == nil {
		t.Error("Expected error for invalid URL")
	}
}
