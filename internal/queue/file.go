package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// fileStore persists the queue as a single JSON array document.
//
// Writes go to a temporary file in the same directory followed by a
// rename, so a crash mid-write leaves the previous document intact.
type fileStore struct {
	path string
	log  logx.Logger
}

func openFileStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for file driver")
	}
	return &fileStore{path: path, log: log}, nil
}

func (s *fileStore) Path() string { return s.path }

func (s *fileStore) Close() error { return nil }

// Load reads the durable document. A missing file is an empty queue.
// Unreadable paths surface as errors; unparseable content is tolerated
// and read as empty (read-tolerant, write-strict).
func (s *fileStore) Load(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return s.decode(b), nil
}

func (s *fileStore) decode(b []byte) []Item {
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}

	var items []Item
	if err := json.Unmarshal(b, &items); err == nil {
		return items
	}

	// A bare object is coerced into a one-element sequence.
	var one Item
	if err := json.Unmarshal(b, &one); err == nil {
		s.log.Warn("store document is a bare object; coercing to one-element list",
			logx.String("path", s.path))
		return []Item{one}
	}

	s.log.Warn("store document unparseable; treating as empty",
		logx.String("path", s.path))
	return nil
}

// Save serializes and atomically overwrites the durable document.
func (s *fileStore) Save(ctx context.Context, items []Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if items == nil {
		items = []Item{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
