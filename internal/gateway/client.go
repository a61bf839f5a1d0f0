// Package gateway wraps the external WhatsApp messaging API (Z-API style
// send-text endpoint). Failures are returned as errors for the caller to
// report; nothing here touches session state.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config carries the gateway connection settings, normally sourced from env.
type Config struct {
	BaseURL     string
	InstanceID  string
	Token       string
	ClientToken string
	Timeout     time.Duration
}

// Client issues send-text calls against the gateway.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client; a zero Timeout defaults to 10s.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send posts one text message to phone. Non-2xx responses are errors.
func (c *Client) Send(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(sendRequest{Phone: phone, Message: text})
	if err != nil {
		return fmt.Errorf("gateway: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/%s/token/%s/send-text", c.cfg.BaseURL, c.cfg.InstanceID, c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.ClientToken != "" {
		req.Header.Set("Client-Token", c.cfg.ClientToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: send to %s: %w", phone, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway: send to %s: status %d: %s", phone, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}
