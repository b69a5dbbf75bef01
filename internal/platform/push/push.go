// Package push sends mobile push notifications through an Expo-compatible
// gateway. The service only ever logs delivery failures; callers must not
// surface them to API clients.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
)

// Sender delivers a single push message to a device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Client posts messages to an Expo-compatible push gateway.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a push client for the given gateway URL. The per-message
// timeout is enforced by the caller's context; the HTTP client timeout is a
// backstop for dialing stalls.
func NewClient(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// message is the Expo push API payload.
type message struct {
	To        string            `json:"to"`
	Sound     string            `json:"sound"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Priority  string            `json:"priority"`
	ChannelID string            `json:"channelId"`
}

// Send posts one push message. Non-2xx responses are returned as errors.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload := message{
		To:        token,
		Sound:     "default",
		Title:     title,
		Body:      body,
		Data:      data,
		Priority:  "high",
		ChannelID: "default",
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Delivery("send push request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Delivery("push gateway", fmt.Errorf("%s: %s", resp.Status, snippet))
	}

	return nil
}
