package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

var (
	// ErrEmpty signals a consume attempt with nothing available.
	// It is a normal "no work" result, not a failure.
	ErrEmpty = errors.New("queue: no items available")

	// ErrLockTimeout is returned when the guard could not be acquired
	// within its bound. The operation is safe to retry.
	ErrLockTimeout = errors.New("queue: lock acquisition timed out")

	// ErrPublishFailed wraps a publisher failure. The affected item has
	// been restored to the store and will be retried on the next cycle.
	ErrPublishFailed = errors.New("queue: publish failed")
)

// Store is the durable ordered collection of items.
//
// Load is read-tolerant: a bare object is coerced into a one-element
// sequence, unparseable content is logged and read as empty. Save is
// write-strict and atomic: no reader ever observes a partially written
// document.
type Store interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error

	// Path is the durable location the store writes to. The concurrency
	// guard is scoped to it.
	Path() string
	Close() error
}

// StoreConfig configures the durable store.
//
// Driver values:
//   - "file": single JSON array document (default)
//   - "sqlite": SQLite database file (optional build tag)
type StoreConfig struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// OpenStore initializes the configured store.
func OpenStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFileStore(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLiteStore(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + driver)
	}
}
