// Package fetcher retrieves HTTP responses for the crawler. Any status below
// 500 is a valid result; network errors, timeouts and 5xx responses surface
// as a FetchError carrying the best-known status code.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single fetch when the caller does not override it.
const DefaultTimeout = 10 * time.Second

// maxRedirects caps redirect following per request.
const maxRedirects = 5

// Result is the outcome of a successful fetch.
type Result struct {
	StatusCode  int
	ContentType string
	Body        string
}

// FetchError is returned for network failures and 5xx responses. StatusCode
// is 0 when no response was received at all.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (status %d): %v", e.StatusCode, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves one URL. Implementations must be safe for reuse across
// sequential calls within a session.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Result, error)
}

// Client is the plain HTTP implementation of Fetcher. It performs no
// retries; retry policy, if any, belongs to the crawl orchestrator.
type Client struct {
	client    *http.Client
	userAgent string
}

// NewClient creates a Client with the given timeout and User-Agent. A zero
// timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Fetch retrieves rawURL. 4xx pages are recorded results, not errors; the
// caller persists them so broken-link detection sees the real status.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{StatusCode: 0, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().Str("url", rawURL).Err(err).Msg("Fetch failed")
		return nil, &FetchError{StatusCode: 0, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("server error: %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        string(body),
	}, nil
}
