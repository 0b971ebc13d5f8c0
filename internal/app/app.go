// Package app wires the queue, its collaborators and the transport
// adapters into one runnable service.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/partho5/CryptoXPoster/internal/config"
	"github.com/partho5/CryptoXPoster/internal/narrative"
	"github.com/partho5/CryptoXPoster/internal/publisher"
	"github.com/partho5/CryptoXPoster/internal/publisher/telegram"
	"github.com/partho5/CryptoXPoster/internal/publisher/x"
	"github.com/partho5/CryptoXPoster/internal/queue"
	"github.com/partho5/CryptoXPoster/internal/scheduler"
	"github.com/partho5/CryptoXPoster/internal/scraper"
	"github.com/partho5/CryptoXPoster/internal/server"
	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

const (
	defaultScrapeSpec  = "@every 6h"
	defaultProcessSpec = "@every 3h"
)

type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	store    queue.Store
	q        *queue.Queue
	pub      queue.Publisher
	scrapers *scraper.Set
	sched    *scheduler.Service
	srv      *server.Server

	watchCancel context.CancelFunc
	wg          sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{cfgm: cfgm, logs: logs, log: log.With(logx.String("comp", "app"))}
	if err := a.build(cfg, log); err != nil {
		_ = logs.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, log logx.Logger) error {
	lockTimeout, err := config.ParseDurationOrDefault("queue.lock_timeout", cfg.Queue.LockTimeout, 5*time.Second)
	if err != nil {
		return err
	}
	busyTimeout, err := config.ParseDurationOrDefault("store.busy_timeout", cfg.Store.BusyTimeout, 0)
	if err != nil {
		return err
	}
	order, err := queue.ParseOrder(cfg.Queue.Order)
	if err != nil {
		return err
	}

	store, err := queue.OpenStore(queue.StoreConfig{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return err
	}
	a.store = store
	a.q = queue.New(store, queue.Options{
		Order:       order,
		LockTimeout: lockTimeout,
	}, log.With(logx.String("comp", "queue")))

	if err := a.buildPublisher(cfg, log); err != nil {
		return err
	}
	if err := a.buildScrapers(cfg, log); err != nil {
		return err
	}
	if err := a.buildScheduler(cfg, log); err != nil {
		return err
	}

	if cfg.Server.Enabled {
		a.srv = server.New(server.Config{
			Address:  cfg.Server.Address,
			AuthCode: cfg.Server.AuthCode,
			Pprof:    cfg.Server.Pprof,
		}, a.q, a.pub, a.ScrapeAll, log.With(logx.String("comp", "http")))
	}
	return nil
}

func (a *App) buildPublisher(cfg *config.Config, log logx.Logger) error {
	target := strings.ToLower(strings.TrimSpace(cfg.Publisher.Target))
	plog := log.With(logx.String("comp", "publisher"))
	switch target {
	case "x", "twitter":
		a.pub = x.New(x.Config{
			ConsumerKey:       cfg.X.ConsumerKey,
			ConsumerSecret:    cfg.X.ConsumerSecret,
			AccessToken:       cfg.X.AccessToken,
			AccessTokenSecret: cfg.X.AccessTokenSecret,
			RatePerMin:        cfg.Publisher.RatePerMin,
		}, plog)
	case "telegram":
		pub, err := telegram.New(telegram.Config{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, plog)
		if err != nil {
			return err
		}
		a.pub = pub
	case "", "log":
		a.pub = publisher.NewLog(plog)
	default:
		return fmt.Errorf("unknown publisher target %q", cfg.Publisher.Target)
	}
	return nil
}

func (a *App) buildScrapers(cfg *config.Config, log logx.Logger) error {
	timeout, err := config.ParseDurationOrDefault("scraper.timeout", cfg.Scraper.Timeout, 30*time.Second)
	if err != nil {
		return err
	}
	slog := log.With(logx.String("comp", "scraper"))
	client := scraper.NewClient(timeout, cfg.Scraper.RetryMax, slog)

	var sources []scraper.Source
	if scraper.Enabled(cfg.Scraper.Sources, "cointelegraph") {
		sources = append(sources, scraper.NewCointelegraph(client, cfg.Scraper.MaxArticles, slog))
	}
	if scraper.Enabled(cfg.Scraper.Sources, "yahoo") {
		if cfg.OpenAI.APIKey == "" {
			a.log.Warn("yahoo source needs an OpenAI key for narrative generation; source disabled")
		} else {
			gen, err := narrative.New(narrative.Config{
				APIKey:      cfg.OpenAI.APIKey,
				BaseURL:     cfg.OpenAI.BaseURL,
				Model:       cfg.OpenAI.Model,
				Temperature: cfg.OpenAI.Temperature,
				MaxTokens:   cfg.OpenAI.MaxTokens,
			}, log.With(logx.String("comp", "narrative")))
			if err != nil {
				return err
			}
			sources = append(sources, scraper.NewYahoo(client, gen, cfg.Scraper.MaxArticles, slog))
		}
	}
	a.scrapers = scraper.NewSet(slog, sources...)
	return nil
}

func (a *App) buildScheduler(cfg *config.Config, log logx.Logger) error {
	a.sched = scheduler.New(scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Scheduler.Timezone,
	}, log.With(logx.String("comp", "scheduler")))

	scrapeSpec := cfg.Scheduler.ScrapeSpec
	if scrapeSpec == "" {
		scrapeSpec = defaultScrapeSpec
	}
	processSpec := cfg.Scheduler.ProcessSpec
	if processSpec == "" {
		processSpec = defaultProcessSpec
	}
	return a.sched.Add(
		&scheduler.Job{Name: "scrape", Spec: scrapeSpec, Run: func(ctx context.Context) error {
			_, _, err := a.RunScrape(ctx)
			return err
		}},
		&scheduler.Job{Name: "process", Spec: processSpec, Run: func(ctx context.Context) error {
			_, err := a.RunProcess(ctx)
			if queue.IsEmptySignal(err) {
				return nil
			}
			return err
		}},
	)
}

// Queue exposes the queue for the CLI adapter.
func (a *App) Queue() *queue.Queue { return a.q }

// ScrapeAll runs every configured source once.
func (a *App) ScrapeAll(ctx context.Context) ([]queue.Item, error) {
	return a.scrapers.ScrapeAll(ctx)
}

// RunScrape scrapes all sources and merges the batch into the queue.
// Returns (scraped, new total).
func (a *App) RunScrape(ctx context.Context) (int, int, error) {
	items, err := a.scrapers.ScrapeAll(ctx)
	if err != nil {
		return 0, 0, err
	}
	total, err := a.q.Ingest(ctx, items)
	if err != nil {
		return 0, 0, err
	}
	return len(items), total, nil
}

// RunProcess runs one consumption cycle against the configured publisher.
func (a *App) RunProcess(ctx context.Context) (*queue.Item, error) {
	return a.q.ConsumeNext(ctx, a.pub)
}

// Start brings up the long-running pieces: HTTP server, scheduler,
// config watch and systemd notification. One-shot CLI commands never
// call this.
func (a *App) Start(ctx context.Context) error {
	if a.srv != nil {
		if err := a.srv.Start(ctx); err != nil {
			return err
		}
	}
	if err := a.sched.Start(ctx); err != nil {
		return err
	}

	wctx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(wctx)
	}()

	sub := a.cfgm.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-wctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(wctx, cfg)
			}
		}
	}()

	a.notifySystemd(wctx)
	a.log.Info("started")
	return nil
}

// applyReload applies the live-reloadable slice of the config: logging
// and scheduler. Store, queue and publisher changes need a restart.
func (a *App) applyReload(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.sched.Apply(ctx, scheduler.Config{
		Enabled:  cfg.Scheduler.Enabled,
		Timezone: cfg.Scheduler.Timezone,
	})
	a.log.Info("config applied")
}

// notifySystemd reports readiness and feeds the watchdog when running
// under systemd; a no-op anywhere else.
func (a *App) notifySystemd(ctx context.Context) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err == nil && ok {
		a.log.Debug("systemd readiness notified")
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.watchCancel != nil {
		a.watchCancel()
	}
	a.sched.Stop(ctx)
	if a.srv != nil {
		a.srv.Stop(ctx)
	}
	a.wg.Wait()

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	if err := a.logs.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Close releases resources for one-shot usage (no Start).
func (a *App) Close() error {
	err := a.store.Close()
	_ = a.logs.Close()
	return err
}
