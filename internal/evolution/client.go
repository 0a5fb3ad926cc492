// Package evolution integrates with the Evolution API, the WhatsApp gateway:
// an outbound client for sending replies and the webhook payload types for
// receiving messages.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSend wraps failures while delivering an outbound message.
var ErrSend = errors.New("evolution: send failed")

const defaultTimeout = 30 * time.Second

// sendOptions mirror the Evolution API message options. The short delay with
// composing presence makes the bot show as "typing" before the reply lands.
type sendOptions struct {
	Delay    int    `json:"delay"`
	Presence string `json:"presence"`
}

type textMessage struct {
	Text string `json:"text"`
}

type sendTextRequest struct {
	Number      string      `json:"number"`
	Options     sendOptions `json:"options"`
	TextMessage textMessage `json:"textMessage"`
}

// Client sends messages through an Evolution API instance.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

// NewClient creates a Client for the given Evolution API deployment.
// httpClient may be nil, in which case a client with a 30s timeout is used.
func NewClient(baseURL, apiKey, instance string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		instance:   instance,
		httpClient: httpClient,
	}
}

// SendText delivers a text message to a phone number.
func (c *Client) SendText(ctx context.Context, number, text string) error {
	body, err := json.Marshal(sendTextRequest{
		Number:      number,
		Options:     sendOptions{Delay: 100, Presence: "composing"},
		TextMessage: textMessage{Text: text},
	})
	if err != nil {
		return fmt.Errorf("%w: encoding request: %v", ErrSend, err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrSend, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrSend, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
