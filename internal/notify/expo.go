package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultPushURL = "https://exp.host/--/api/v2/push/send"

// IsExpoPushToken reports whether the token looks like a token issued by the
// Expo push service. An invalid token cannot become valid by retrying, so the
// worker drops such jobs without calling the provider.
func IsExpoPushToken(token string) bool {
	if !strings.HasSuffix(token, "]") {
		return false
	}
	var rest string
	switch {
	case strings.HasPrefix(token, "ExponentPushToken["):
		rest = token[len("ExponentPushToken[") : len(token)-1]
	case strings.HasPrefix(token, "ExpoPushToken["):
		rest = token[len("ExpoPushToken[") : len(token)-1]
	default:
		return false
	}
	return rest != ""
}

type pushTicket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type pushResponse struct {
	Data []pushTicket `json:"data"`
}

// ExpoClient sends messages to the Expo push HTTP API one at a time. The
// provider is best-effort; a rejected ticket is reported as an error and the
// job is marked failed, never retried.
type ExpoClient struct {
	url    string
	client *http.Client
}

func NewExpoClient(url string, timeout time.Duration) *ExpoClient {
	if url == "" {
		url = DefaultPushURL
	}
	return &ExpoClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *ExpoClient) Send(ctx context.Context, msg PushMessage) error {
	const op = "notify.ExpoClient.Send"

	body, err := json.Marshal([]PushMessage{msg})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var tickets pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(tickets.Data) == 0 {
		return fmt.Errorf("%s: empty ticket response", op)
	}
	if tickets.Data[0].Status == "error" {
		return fmt.Errorf("%s: provider rejected message: %s", op, tickets.Data[0].Message)
	}

	return nil
}
