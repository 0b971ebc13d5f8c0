// Package x publishes items to X (Twitter) via the v2 create-tweet
// endpoint with OAuth1 user-context signing.
package x

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

	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"

	"github.com/partho5/CryptoXPoster/internal/publisher"
	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

const defaultEndpoint = "https://api.x.com/2/tweets"

// ErrMissingCredentials marks an attempt without a complete OAuth1
// credential set. This is a retriable configuration problem, never a
// reason to drop the item.
var ErrMissingCredentials = errors.New("x: api credentials not configured")

type Config struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	// RatePerMin caps outgoing posts; 0 means 1/min.
	RatePerMin int

	// Endpoint overrides the create-tweet URL (tests).
	Endpoint string
}

func (c Config) complete() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" &&
		c.AccessToken != "" && c.AccessTokenSecret != ""
}

type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *rate.Limiter
	endpoint string
	log      logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	rpm := cfg.RatePerMin
	if rpm <= 0 {
		rpm = 1
	}

	var hc *http.Client
	if cfg.complete() {
		oc := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
		tok := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
		hc = oc.Client(oauth1.NoContext, tok)
		hc.Timeout = 15 * time.Second
	}

	return &Client{
		cfg:      cfg,
		http:     hc,
		limiter:  rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		endpoint: endpoint,
		log:      log,
	}
}

type createTweetRequest struct {
	Text string `json:"text"`
}

type createTweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Publish attempts to post one item.
//
// Classification: missing credentials or API/network trouble is Failed
// (the queue restores the item); an item that cannot be rendered into a
// post, or that X rejects as duplicate content, is Skipped (terminal).
func (c *Client) Publish(ctx context.Context, it queue.Item) queue.Outcome {
	if c.http == nil {
		return queue.Failed(ErrMissingCredentials)
	}

	text, err := publisher.FormatPost(it)
	if err != nil {
		return queue.Skipped(err.Error())
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return queue.Failed(err)
	}

	body, err := json.Marshal(createTweetRequest{Text: text})
	if err != nil {
		return queue.Failed(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return queue.Failed(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return queue.Failed(fmt.Errorf("x: create tweet: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var out createTweetResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			// Posted but response unreadable; still a success.
			c.log.Warn("tweet created but response unparseable", logx.Err(err))
			return queue.Published("")
		}
		return queue.Published(out.Data.ID)
	case resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(raw)), "duplicate"):
		return queue.Skipped("duplicate content")
	default:
		return queue.Failed(fmt.Errorf("x: create tweet: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
}
