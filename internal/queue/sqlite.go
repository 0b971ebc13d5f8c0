//go:build sqlite
// +build sqlite

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// sqliteStore keeps the ordered document in a single table, position 0
// being the head. Save rewrites the full sequence in one transaction so
// the load/save contract matches the file driver exactly.
type sqliteStore struct {
	db   *sql.DB
	path string
	log  logx.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS items (
	position  INTEGER NOT NULL,
	title     TEXT NOT NULL,
	summary   TEXT NOT NULL DEFAULT '',
	link      TEXT NOT NULL DEFAULT '',
	image_url TEXT,
	ts        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_items_position ON items(position);
`

func openSQLiteStore(cfg StoreConfig, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("store.path is required for sqlite driver")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, path: path, log: log}, nil
}

func (s *sqliteStore) Path() string { return s.path }

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, summary, link, image_url, ts FROM items ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var img sql.NullString
		if err := rows.Scan(&it.Title, &it.Summary, &it.Link, &img, &it.Timestamp); err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		if img.Valid {
			v := img.String
			it.ImageURL = &v
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return items, nil
}

func (s *sqliteStore) Save(ctx context.Context, items []Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items(position, title, summary, link, image_url, ts) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	defer stmt.Close()

	for i, it := range items {
		var img any
		if it.ImageURL != nil {
			img = *it.ImageURL
		}
		if _, err := stmt.ExecContext(ctx, i, it.Title, it.Summary, it.Link, img, it.Timestamp); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
