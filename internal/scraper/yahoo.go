package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

const (
	yahooBase        = "https://finance.yahoo.com"
	yahooTrendingURL = yahooBase + "/markets/crypto/trending/"
)

// Yahoo scrapes the trending-crypto market table and feeds each row
// through the narrative composer to obtain a publishable item.
type Yahoo struct {
	url     string
	client  *Client
	compose Composer
	maxRows int
	log     logx.Logger
}

func NewYahoo(client *Client, compose Composer, maxRows int, log logx.Logger) *Yahoo {
	if maxRows <= 0 {
		maxRows = 5
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Yahoo{url: yahooTrendingURL, client: client, compose: compose, maxRows: maxRows, log: log}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) Fetch(ctx context.Context) ([]queue.Item, error) {
	body, err := y.client.Get(ctx, y.url)
	if err != nil {
		return nil, err
	}
	rows, err := y.parseRows(body)
	if err != nil {
		return nil, err
	}

	var items []queue.Item
	for _, row := range rows {
		if len(items) >= y.maxRows {
			break
		}
		it, err := y.compose.Compose(ctx, row)
		if err != nil {
			y.log.Warn("narrative generation failed for row",
				logx.String("symbol", row.Symbol),
				logx.Err(err))
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func (y *Yahoo) parseRows(body []byte) ([]MarketRow, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("yahoo html unparseable: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, errors.New("no table found on page")
	}

	var rows []MarketRow
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 6 {
			return
		}
		row := MarketRow{
			Symbol: cleanText(tds.Eq(0).Find("span.symbol").First().Text()),
			Name:   cleanText(tds.Eq(1).Text()),
		}
		if row.Symbol == "" {
			row.Symbol = cleanText(tds.Eq(0).Text())
		}
		row.Price = finStreamer(tds.Eq(3), "regularMarketPrice")
		row.Change = finStreamer(tds.Eq(4), "regularMarketChange")
		row.ChangePercent = finStreamer(tds.Eq(5), "regularMarketChangePercent")
		if row.Symbol != "" {
			row.URL = yahooBase + "/quote/" + row.Symbol
		}
		if row.Symbol != "" || row.Name != "" {
			rows = append(rows, row)
		}
	})
	if len(rows) == 0 {
		return nil, errors.New("no data rows found")
	}
	return rows, nil
}

func finStreamer(cell *goquery.Selection, field string) string {
	tag := cell.Find(`fin-streamer[data-field="` + field + `"]`).First()
	if tag.Length() > 0 {
		return cleanText(tag.Text())
	}
	return cleanText(cell.Text())
}
