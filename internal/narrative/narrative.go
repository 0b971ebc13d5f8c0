// Package narrative turns raw market rows into publishable news items
// using an LLM chat-completion call.
package narrative

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

	"github.com/partho5/CryptoXPoster/internal/queue"
	"github.com/partho5/CryptoXPoster/internal/scraper"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
)

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator composes one item per market row via the OpenAI
// chat-completions endpoint.
type Generator struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
	log    logx.Logger
}

func New(cfg Config, log logx.Logger) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("narrative: api key is empty")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Generator{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		log:    log,
	}, nil
}

const composePrompt = `You are a financial news assistant. Given the following market data:

%s

Generate a JSON object representing a single financial news post suitable for X (formerly Twitter). Use a professional yet engaging tone appropriate for financial newsfeeds.

Structure the JSON output as:
{
  "title": "[Brief headline including symbol or name, and price movement]",
  "summary": "[Natural language summary of current trading price and change]",
  "link": "[Use the provided URL]",
  "image_url": null,
  "timestamp": "%s"
}

Respond with ONLY the JSON object, nothing else.`

// Compose asks the model for a post-shaped JSON object and decodes it
// into an item. The model's reply is fenced-code tolerant.
func (g *Generator) Compose(ctx context.Context, row scraper.MarketRow) (queue.Item, error) {
	rowJSON, err := json.MarshalIndent(row, "", "  ")
	if err != nil {
		return queue.Item{}, err
	}
	ts := g.now().UTC().Format(time.RFC3339)
	prompt := fmt.Sprintf(composePrompt, rowJSON, ts)

	reply, err := g.chat(ctx, prompt)
	if err != nil {
		return queue.Item{}, err
	}

	var it queue.Item
	if err := json.Unmarshal([]byte(cleanReply(reply)), &it); err != nil {
		return queue.Item{}, fmt.Errorf("narrative: model reply is not a post object: %w", err)
	}
	if !it.Valid() {
		return queue.Item{}, errors.New("narrative: model reply has no title")
	}
	if it.Timestamp == "" {
		it.Timestamp = ts
	}
	if it.Link == "" {
		it.Link = row.URL
	}
	return it, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Generator) chat(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: prompt},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrative: chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("narrative: chat completion: status %d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if out.Error != nil {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("narrative: chat completion: status %d: %s", resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("narrative: chat completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// cleanReply strips markdown code fences models like to wrap JSON in.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
