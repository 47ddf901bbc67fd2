package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every request made by a Client created with timeout 0.
const DefaultTimeout = 15 * time.Second

// maxBodySize caps in-memory downloads; covers are a few hundred KB at most.
const maxBodySize = 32 << 20

// NetworkError reports a failed fetch: transport failure, timeout or a
// non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Original   error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("network error: %s: timed out", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("network error: %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Original != nil:
		return fmt.Sprintf("network error: %s: %v", e.URL, e.Original)
	default:
		return fmt.Sprintf("network error: %s", e.URL)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Original
}

// Client wraps HTTP operations used for cover art.
//
// Client provides:
//   - A browser-like User-Agent header (thumbnail CDNs reject empty agents)
//   - A hard timeout on every request
//   - NetworkError for every failure mode
//
// Example usage:
//
//	client := NewClient(15 * time.Second)
//	data, err := client.Get(ctx, "https://i.ytimg.com/vi/ID/maxresdefault.jpg")
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client with the given timeout.
// A zero timeout selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "Mozilla/5.0 (compatible; playlist-album)",
	}
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns a *NetworkError if:
//   - The request fails or times out
//   - The response status is not 2xx
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Original: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Timeout: isTimeout(err), Original: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{URL: url, Timeout: isTimeout(err), Original: err}
	}
	return body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
