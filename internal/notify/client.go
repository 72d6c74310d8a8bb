package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Event describes one proposal lifecycle change. Delivery is best-effort and
// never part of request correctness.
type Event struct {
	Type       string    `json:"type"`
	ProjectID  uint64    `json:"project_id"`
	ProposalID uint64    `json:"proposal_id"`
	ActorID    uint64    `json:"actor_id"`
	At         time.Time `json:"at"`
}

// Client posts events to the notification sink.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send posts one event. A client without a configured sink drops events
// silently so local setups work without one.
func (c *Client) Send(ctx context.Context, event Event) error {
	if c.baseURL == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/events", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"notification sink error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return nil
}
