package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

func newTestFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "news_data.json")
	st, err := OpenStore(StoreConfig{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	return st, path
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	st, _ := newTestFileStore(t)
	ctx := context.Background()

	img := "https://example.com/a.png"
	in := []Item{
		{Title: "Bitcoin climbs", Summary: "BTC up 5%", Link: "https://example.com/btc", ImageURL: &img, Timestamp: "2026-08-24T10:00:00Z"},
		{Title: "ETH steady", Summary: "", Link: "", ImageURL: nil, Timestamp: "2026-08-24T09:00:00Z"},
	}
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
	if out[0].Title != "Bitcoin climbs" || out[0].ImageURL == nil || *out[0].ImageURL != img {
		t.Fatalf("unexpected first item: %+v", out[0])
	}
	if out[1].ImageURL != nil {
		t.Fatalf("expected nil image_url, got %v", *out[1].ImageURL)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	st, _ := newTestFileStore(t)
	items, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty queue, got %d items", len(items))
	}
}

func TestFileStoreBareObjectCoercion(t *testing.T) {
	t.Parallel()
	st, path := newTestFileStore(t)
	doc := `{"title": "Solo", "summary": "s", "link": "", "image_url": null, "timestamp": "2026-08-24T10:00:00Z"}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Solo" {
		t.Fatalf("expected one-element coercion, got %+v", items)
	}
}

func TestFileStoreGarbageReadAsEmpty(t *testing.T) {
	t.Parallel()
	st, path := newTestFileStore(t)
	if err := os.WriteFile(path, []byte("not json at all {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load should tolerate malformed content, got: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty read, got %d items", len(items))
	}
}

func TestFileStoreSaveWritesValidArrayDocument(t *testing.T) {
	t.Parallel()
	st, path := newTestFileStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, nil); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		t.Fatalf("document is not a valid array: %v\n%s", err, b)
	}
	if len(arr) != 0 {
		t.Fatalf("expected empty array, got %d elements", len(arr))
	}

	// No leftover temp files from the atomic write.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the document in the dir, found %d entries", len(entries))
	}
}
