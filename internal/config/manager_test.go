package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const yamlConfig = `
server:
  enabled: true
  address: "127.0.0.1:8000"
  auth_code: "secret"
store:
  path: "./data/news_data.json"
queue:
  order: "newest-first"
  lock_timeout: "10s"
publisher:
  target: "x"
  rate_per_min: 2
scraper:
  sources: ["cointelegraph"]
  max_articles: 5
  timeout: "30s"
scheduler:
  enabled: true
  scrape_spec: "@every 6h"
  process_spec: "@every 3h"
  timezone: "Asia/Jakarta"
logging:
  level: "debug"
  console: true
`

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", yamlConfig)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Server.Enabled || cfg.Server.AuthCode != "secret" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Store.Path != "./data/news_data.json" {
		t.Fatalf("store = %+v", cfg.Store)
	}
	if cfg.Queue.Order != "newest-first" || cfg.Queue.LockTimeout != "10s" {
		t.Fatalf("queue = %+v", cfg.Queue)
	}
	if cfg.Scheduler.ScrapeSpec != "@every 6h" || cfg.Scheduler.Timezone != "Asia/Jakarta" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get must return the committed snapshot")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"server": {"enabled": false}, "store": {"path": "q.json"}}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "q.json" {
		t.Fatalf("store = %+v", cfg.Store)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", "server:\n  enabled: true\n  bogus_field: 1\nstore:\n  path: q.json\n")
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected unknown-field rejection")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "config.json", `{"store": {"path": "q.json"}}{"extra": true}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected trailing-data rejection")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATA_FILE", "/var/lib/override.json")
	t.Setenv("AUTH_CODE", "env-code")
	t.Setenv("TW_CONSUMER_KEY", "env-ck")

	path := writeConfig(t, "config.yaml", "server:\n  enabled: true\n  auth_code: file-code\nstore:\n  path: file.json\n")
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/var/lib/override.json" {
		t.Fatalf("DATA_FILE not applied: %q", cfg.Store.Path)
	}
	if cfg.Server.AuthCode != "env-code" {
		t.Fatalf("AUTH_CODE not applied: %q", cfg.Server.AuthCode)
	}
	if cfg.X.ConsumerKey != "env-ck" {
		t.Fatalf("TW_CONSUMER_KEY not applied: %q", cfg.X.ConsumerKey)
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()
	m := NewManager("unused")
	ch := m.Subscribe(1)

	cfg := &Config{}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("wrong config delivered")
		}
	case <-time.After(time.Second):
		t.Fatal("no config delivered")
	}

	// A full buffer drops the oldest in favor of the newest.
	first, second := &Config{}, &Config{}
	m.publish(first)
	m.publish(second)
	if got := <-ch; got != second {
		t.Fatal("expected the newest config to win")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel must be closed after Unsubscribe")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("queue.lock_timeout", "", 5*time.Second)
	if err != nil || d != 5*time.Second {
		t.Fatalf("empty value: %v %v", d, err)
	}
	d, err = ParseDurationOrDefault("queue.lock_timeout", "250ms", 5*time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("explicit value: %v %v", d, err)
	}
	if _, err := ParseDurationOrDefault("queue.lock_timeout", "soon", 5*time.Second); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}
