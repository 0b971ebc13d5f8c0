package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// News sites reject default Go user agents; present a browser one.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36"

const maxBodyBytes = 4 << 20

// Client is a small retrying HTTP fetcher shared by all sources.
// Retries cover network errors, 429 and 5xx, with doubling backoff.
type Client struct {
	http     *http.Client
	retryMax int
	log      logx.Logger
}

func NewClient(timeout time.Duration, retryMax int, log logx.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		retryMax: retryMax,
		log:      log,
	}
}

// Get fetches url and returns the body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	backoff := time.Second
	var lastErr error

	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, retriable, err := c.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retriable {
			return nil, err
		}
		c.log.Debug("fetch retry",
			logx.String("url", url),
			logx.Int("attempt", attempt+1),
			logx.Err(err))
	}
	return nil, fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (c *Client) fetch(ctx context.Context, url string) (body []byte, retriable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, true, err
		}
		return b, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}
}
