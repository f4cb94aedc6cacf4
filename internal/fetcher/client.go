package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNetwork marks transport failures and non-2xx responses.
var ErrNetwork = errors.New("network failure")

const defaultUserAgent = "grid-dashboard/1.0 (github.com/Zachdehooge/grid-dashboard)"

// Client fetches the dashboard's upstream feeds.
type Client struct {
	HTTP      *http.Client
	UserAgent string
}

// NewClient returns a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
	}
}

// get performs a GET and returns the body. Every failure wraps ErrNetwork.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad request for %s: %v", ErrNetwork, url, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP GET failed: %v", ErrNetwork, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: read body failed: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snip := body
		if len(snip) > 200 {
			snip = snip[:200]
		}
		return nil, fmt.Errorf("%w: API error: %d: %s", ErrNetwork, resp.StatusCode, string(snip))
	}
	return body, nil
}
