package feedreplay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/trophycase/internal/domain/microjson"
)

// Outcome classifies the service's answer to one message.
type Outcome int

// Outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeAccepted
	OutcomeDuplicate
	OutcomeBackpressure
)

const messageIDHeader = "X-Message-Id"

// Client talks to the trophycase HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Send posts one feed message.
func (c *Client) Send(ctx context.Context, rec Record) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(rec.Payload))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if rec.ID != "" {
		req.Header.Set(messageIDHeader, rec.ID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return OutcomeFailed, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to read response: %w", err)
	}

	status, _ := microjson.String(string(body), "status")
	switch {
	case resp.StatusCode == http.StatusAccepted:
		return OutcomeAccepted, nil
	case resp.StatusCode == http.StatusOK && status == "duplicate":
		return OutcomeDuplicate, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return OutcomeBackpressure, nil
	default:
		return OutcomeFailed, fmt.Errorf("unexpected response %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// SetConnected reports the feed connection state.
func (c *Client) SetConnected(ctx context.Context, connected bool) error {
	body := fmt.Sprintf(`{"connected":%t}`, connected)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/connection", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response %d", resp.StatusCode)
	}
	return nil
}
