// Package scraper collects candidate news items from public market/news
// pages. Each source turns a remote page into a batch of queue items;
// the ingestion merge owns everything after that.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/partho5/CryptoXPoster/internal/queue"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// Source produces candidate items from one remote page.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]queue.Item, error)
}

// MarketRow is one scraped row of a market table, before the narrative
// generator turns it into a publishable item.
type MarketRow struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
	URL           string `json:"url"`
}

// Composer turns one market row into a publishable item.
// Implemented by the narrative generator.
type Composer interface {
	Compose(ctx context.Context, row MarketRow) (queue.Item, error)
}

// Set runs all configured sources and concatenates their items.
type Set struct {
	sources []Source
	log     logx.Logger
}

func NewSet(log logx.Logger, sources ...Source) *Set {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Set{sources: sources, log: log}
}

// ScrapeAll fetches every source, tolerating per-source failures. It
// errors only when no source produced anything and at least one failed.
func (s *Set) ScrapeAll(ctx context.Context) ([]queue.Item, error) {
	var (
		items []queue.Item
		errs  []error
	)
	for _, src := range s.sources {
		batch, err := src.Fetch(ctx)
		if err != nil {
			s.log.Warn("source failed",
				logx.String("source", src.Name()),
				logx.Err(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		s.log.Info("source scraped",
			logx.String("source", src.Name()),
			logx.Int("items", len(batch)))
		items = append(items, batch...)
	}
	if len(items) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return items, nil
}

// SourceNames lists the configured source names.
func (s *Set) SourceNames() []string {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	return names
}

// Enabled reports whether name appears in sources (empty list means all).
func Enabled(sources []string, name string) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}
