package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExpoClient_Send(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		response    string
		wantErr     bool
		wantErrPart string
	}{
		{
			name:     "ok ticket",
			status:   http.StatusOK,
			response: `{"data":[{"status":"ok","id":"ticket-1"}]}`,
		},
		{
			name:        "error ticket",
			status:      http.StatusOK,
			response:    `{"data":[{"status":"error","message":"DeviceNotRegistered"}]}`,
			wantErr:     true,
			wantErrPart: "DeviceNotRegistered",
		},
		{
			name:        "http error",
			status:      http.StatusBadGateway,
			response:    `{}`,
			wantErr:     true,
			wantErrPart: "unexpected status",
		},
		{
			name:        "empty ticket list",
			status:      http.StatusOK,
			response:    `{"data":[]}`,
			wantErr:     true,
			wantErrPart: "empty ticket",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody []byte
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotBody, _ = io.ReadAll(r.Body)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			client := NewExpoClient(srv.URL, 5*time.Second)
			msg := PushMessage{
				To:    "ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]",
				Sound: "default",
				Title: "Payment Overdue: Kwame Mensah",
				Body:  "GHS 150.50 is overdue.",
			}

			err := client.Send(context.Background(), msg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErrPart) {
					t.Errorf("error %q does not mention %q", err, tt.wantErrPart)
				}
				return
			}
			if err != nil {
				t.Fatalf("Send returned error: %v", err)
			}

			// provider receives exactly one message per call
			var sent []PushMessage
			if err := json.Unmarshal(gotBody, &sent); err != nil {
				t.Fatalf("request body is not a message array: %v", err)
			}
			if len(sent) != 1 || sent[0].Title != msg.Title {
				t.Errorf("unexpected request body: %s", gotBody)
			}
		})
	}
}

func TestExpoClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewExpoClient(srv.URL, 20*time.Millisecond)
	err := client.Send(context.Background(), PushMessage{To: "ExpoPushToken[abc]"})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}
