// Package tba provides a minimal client for The Blue Alliance API v3 that
// copies an event's official data into the store.
package tba

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the root endpoint of The Blue Alliance API v3.
const DefaultBaseURL = "https://www.thebluealliance.com/api/v3"

// Client is a minimal TBA API v3 client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient returns a TBA client authenticated with the given read key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client at another server.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// get performs an authenticated GET request and returns the raw body, which
// must be valid JSON.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-TBA-Auth-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("GET %s: invalid JSON", path)
	}
	return body, nil
}

// Event returns the raw event record.
func (c *Client) Event(ctx context.Context, event string) ([]byte, error) {
	return c.get(ctx, "/event/"+event)
}

// Teams returns the raw team list of an event.
func (c *Client) Teams(ctx context.Context, event string) ([]byte, error) {
	return c.get(ctx, "/event/"+event+"/teams")
}

// Matches returns the raw match list of an event, score breakdowns included.
func (c *Client) Matches(ctx context.Context, event string) ([]byte, error) {
	return c.get(ctx, "/event/"+event+"/matches")
}

// Rankings returns the raw rankings response of an event.
func (c *Client) Rankings(ctx context.Context, event string) ([]byte, error) {
	return c.get(ctx, "/event/"+event+"/rankings")
}
