package config

import "os"

// Config is the root configuration document. It is decoded strictly
// (unknown fields are rejected) from JSON or YAML.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "3h").
type Config struct {
	Server    ServerConfig    `json:"server"`
	Store     StoreConfig     `json:"store"`
	Queue     QueueConfig     `json:"queue,omitempty"`
	Publisher PublisherConfig `json:"publisher,omitempty"`
	X         XConfig         `json:"x,omitempty"`
	Telegram  TelegramConfig  `json:"telegram,omitempty"`
	OpenAI    OpenAIConfig    `json:"openai,omitempty"`
	Scraper   ScraperConfig   `json:"scraper,omitempty"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"`
}

type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
	// AuthCode guards the mutating endpoints. Overridable via AUTH_CODE.
	AuthCode string `json:"auth_code,omitempty"`
	// Pprof exposes /debug/pprof on the same listener.
	Pprof bool `json:"pprof,omitempty"`
}

type StoreConfig struct {
	// Driver is "file" (default) or "sqlite" (requires -tags sqlite).
	Driver string `json:"driver,omitempty"`
	// Path of the durable document. Overridable via DATA_FILE.
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite only).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type QueueConfig struct {
	// Order is "newest-first" (default, the original pop-index-0
	// behavior) or "oldest-first".
	Order string `json:"order,omitempty"`
	// LockTimeout bounds guard acquisition (default "5s").
	LockTimeout string `json:"lock_timeout,omitempty"`
}

type PublisherConfig struct {
	// Target is "x", "telegram" or "log" (dry-run, default).
	Target string `json:"target,omitempty"`
	// RatePerMin caps outgoing posts (default 1).
	RatePerMin int `json:"rate_per_min,omitempty"`
}

type XConfig struct {
	ConsumerKey       string `json:"consumer_key,omitempty"`
	ConsumerSecret    string `json:"consumer_secret,omitempty"`
	AccessToken       string `json:"access_token,omitempty"`
	AccessTokenSecret string `json:"access_token_secret,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}

type OpenAIConfig struct {
	// APIKey is overridable via OPENAI_API_KEY.
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type ScraperConfig struct {
	// Sources to pull from: "cointelegraph", "yahoo". Empty means all.
	Sources     []string `json:"sources,omitempty"`
	MaxArticles int      `json:"max_articles,omitempty"`
	// Timeout is a Go duration string per request (default "30s").
	Timeout  string `json:"timeout,omitempty"`
	RetryMax int    `json:"retry_max,omitempty"`
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`
	// ScrapeSpec / ProcessSpec are cron specs or @every intervals
	// (e.g. "@every 6h", "0 */3 * * *").
	ScrapeSpec  string `json:"scrape_spec,omitempty"`
	ProcessSpec string `json:"process_spec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// ApplyEnv layers environment overrides on top of the file content, the
// way the original deployment configured itself (.env style).
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATA_FILE"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("AUTH_CODE"); v != "" {
		c.Server.AuthCode = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("TW_CONSUMER_KEY"); v != "" {
		c.X.ConsumerKey = v
	}
	if v := os.Getenv("TW_CONSUMER_SECRET"); v != "" {
		c.X.ConsumerSecret = v
	}
	if v := os.Getenv("TW_ACCESS_TOKEN"); v != "" {
		c.X.AccessToken = v
	}
	if v := os.Getenv("TW_ACCESS_TOKEN_SECRET"); v != "" {
		c.X.AccessTokenSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
}
