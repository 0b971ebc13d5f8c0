package scraper

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

const (
	cointelegraphBase = "https://cointelegraph.com/"
	summaryMaxLen     = 180
)

// Cointelegraph scrapes the front-page post cards.
type Cointelegraph struct {
	baseURL     string
	maxArticles int
	client      *Client
	now         func() time.Time
	log         logx.Logger
}

func NewCointelegraph(client *Client, maxArticles int, log logx.Logger) *Cointelegraph {
	if maxArticles <= 0 {
		maxArticles = 5
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Cointelegraph{
		baseURL:     cointelegraphBase,
		maxArticles: maxArticles,
		client:      client,
		now:         time.Now,
		log:         log,
	}
}

func (c *Cointelegraph) Name() string { return "cointelegraph" }

func (c *Cointelegraph) Fetch(ctx context.Context) ([]queue.Item, error) {
	body, err := c.client.Get(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}
	items := c.parse(body)
	if len(items) == 0 {
		c.log.Warn("no articles found; the site structure may have changed",
			logx.String("url", c.baseURL))
	}
	return items, nil
}

// parse walks the post-card listing. Cards missing a title are dropped;
// everything else is tolerated with empty fields.
func (c *Cointelegraph) parse(body []byte) []queue.Item {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		c.log.Warn("cointelegraph html unparseable", logx.Err(err))
		return nil
	}

	var items []queue.Item
	doc.Find(`li[data-testid="posts-listing__item"]`).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(items) >= c.maxArticles {
			return false
		}
		title := cleanText(card.Find(`span[data-testid="post-card-title"]`).First().Text())
		if title == "" {
			return true
		}

		summary := cleanText(card.Find(`p[data-testid="post-card-preview-text"]`).First().Text())
		if len(summary) > summaryMaxLen {
			summary = summary[:summaryMaxLen] + "..."
		}

		link, _ := card.Find(`a[data-testid="post-cad__link"]`).First().Attr("href")
		if strings.HasPrefix(link, "/") {
			link = strings.TrimRight(c.baseURL, "/") + link
		}

		var imageURL *string
		if src, ok := card.Find("img.lazy-image__img").First().Attr("src"); ok && src != "" {
			imageURL = &src
		}

		items = append(items, queue.Item{
			Title:     title,
			Summary:   summary,
			Link:      link,
			ImageURL:  imageURL,
			Timestamp: c.now().Format(time.RFC3339),
		})
		return true
	})
	return items
}
