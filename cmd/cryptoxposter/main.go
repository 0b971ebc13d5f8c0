package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/partho5/CryptoXPoster/internal/app"
	"github.com/partho5/CryptoXPoster/internal/queue"
)

const usage = `usage: cryptoxposter [-config path] <command>

commands:
  scrape    scrape all sources once and merge into the queue
  process   consume and publish the next queued article
  serve     run the HTTP API and scheduler until interrupted
  status    print queue size and store location
`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	switch cmd {
	case "scrape":
		defer a.Close()
		scraped, total, err := a.RunScrape(ctx)
		if err != nil {
			fmt.Println("ERROR: scraping failed:", err)
			os.Exit(1)
		}
		fmt.Printf("SUCCESS: scraped %d articles, %d queued in total\n", scraped, total)

	case "process":
		defer a.Close()
		item, err := a.RunProcess(ctx)
		switch {
		case queue.IsEmptySignal(err):
			fmt.Println("ERROR: no articles available to process")
			os.Exit(1)
		case err != nil:
			fmt.Println("ERROR: processing failed:", err)
			os.Exit(1)
		default:
			fmt.Printf("SUCCESS: article processed: %s\n", item.Title)
		}

	case "serve":
		if err := a.Start(ctx); err != nil {
			fmt.Println("fatal start:", err)
			os.Exit(1)
		}
		<-ctx.Done()
		_ = a.Stop(context.Background())

	case "status":
		defer a.Close()
		items, err := a.Queue().ListAll(ctx)
		if err != nil {
			fmt.Println("ERROR:", err)
			os.Exit(1)
		}
		fmt.Printf("Articles stored: %d\n", len(items))
		fmt.Println("Status: OK")

	default:
		flag.Usage()
		os.Exit(2)
	}
}
