package fetcher

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// RenderingClient fetches pages through a headless browser so that
// JavaScript-built markup is visible to the parser. It satisfies the same
// Fetcher interface as the plain Client; the crawler does not care which
// one it is handed.
//
// A fresh browser context is created per fetch. Crawls are sequential with a
// fixed inter-request delay, so the allocation cost is not on a hot path.
type RenderingClient struct {
	timeout   time.Duration
	userAgent string
}

// NewRenderingClient creates a chromedp-backed fetcher.
func NewRenderingClient(timeout time.Duration, userAgent string) *RenderingClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RenderingClient{timeout: timeout, userAgent: userAgent}
}

// Fetch navigates to rawURL, waits for scripts to settle and returns the
// rendered document. The browser does not expose the response status, so a
// successful render is reported as 200.
func (c *RenderingClient) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	timeoutCtx, cancelTimeout := context.WithTimeout(taskCtx, c.timeout)
	defer cancelTimeout()

	var renderedHTML string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(rawURL),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &renderedHTML),
	)
	if err != nil {
		log.Debug().Str("url", rawURL).Err(err).Msg("Rendered fetch failed")
		return nil, &FetchError{StatusCode: 0, Err: err}
	}

	return &Result{
		StatusCode:  200,
		ContentType: "text/html",
		Body:        renderedHTML,
	}, nil
}
