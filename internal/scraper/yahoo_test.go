package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

const yahooFixture = `<!DOCTYPE html>
<html><body>
<table>
  <thead><tr><th>Symbol</th><th>Name</th><th>Chart</th><th>Price</th><th>Change</th><th>% Change</th></tr></thead>
  <tbody>
    <tr>
      <td><span class="symbol">BTC-USD</span></td>
      <td>Bitcoin USD</td>
      <td><svg></svg></td>
      <td><fin-streamer data-field="regularMarketPrice">64,250.10</fin-streamer></td>
      <td><fin-streamer data-field="regularMarketChange">+1,200.40</fin-streamer></td>
      <td><fin-streamer data-field="regularMarketChangePercent">+1.90%</fin-streamer></td>
    </tr>
    <tr>
      <td>ETH-USD</td>
      <td>Ethereum USD</td>
      <td></td>
      <td>3,100.55</td>
      <td>-42.10</td>
      <td>-1.34%</td>
    </tr>
    <tr>
      <td>short row</td><td>skipped</td>
    </tr>
  </tbody>
</table>
</body></html>`

type stubComposer struct {
	fail map[string]bool
}

func (s *stubComposer) Compose(ctx context.Context, row MarketRow) (queue.Item, error) {
	if s.fail[row.Symbol] {
		return queue.Item{}, errors.New("model unavailable")
	}
	return queue.Item{Title: row.Symbol + " update", Link: row.URL}, nil
}

func TestYahooParseRows(t *testing.T) {
	t.Parallel()
	y := NewYahoo(nil, nil, 5, logx.Nop())
	rows, err := y.parseRows([]byte(yahooFixture))
	if err != nil {
		t.Fatalf("parseRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (short row skipped), got %d", len(rows))
	}

	btc := rows[0]
	if btc.Symbol != "BTC-USD" || btc.Name != "Bitcoin USD" {
		t.Fatalf("row 0 = %+v", btc)
	}
	if btc.Price != "64,250.10" || btc.Change != "+1,200.40" || btc.ChangePercent != "+1.90%" {
		t.Fatalf("fin-streamer values not extracted: %+v", btc)
	}
	if btc.URL != "https://finance.yahoo.com/quote/BTC-USD" {
		t.Fatalf("url = %q", btc.URL)
	}

	// Cells without fin-streamer tags fall back to the cell text.
	eth := rows[1]
	if eth.Symbol != "ETH-USD" || eth.Price != "3,100.55" {
		t.Fatalf("fallback row = %+v", eth)
	}
}

func TestYahooParseRowsNoTable(t *testing.T) {
	t.Parallel()
	y := NewYahoo(nil, nil, 5, logx.Nop())
	if _, err := y.parseRows([]byte("<html><body></body></html>")); err == nil {
		t.Fatal("expected error for missing table")
	}
}

func TestYahooFetchToleratesComposerFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	y := NewYahoo(NewClient(5*time.Second, 1, logx.Nop()),
		&stubComposer{fail: map[string]bool{"BTC-USD": true}}, 5, logx.Nop())
	y.url = srv.URL

	items, err := y.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].Title != "ETH-USD update" {
		t.Fatalf("expected only the ETH row to survive, got %+v", items)
	}
}
