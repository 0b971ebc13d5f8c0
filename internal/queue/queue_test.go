package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

func newTestQueue(t *testing.T, opt Options) (*Queue, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "news_data.json")
	st, err := OpenStore(StoreConfig{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return New(st, opt, logx.Nop()), path
}

func item(n string) Item {
	return Item{Title: n, Summary: "summary of " + n, Link: "https://example.com/" + n, Timestamp: "2026-08-24T10:00:00Z"}
}

func alwaysPublish() Publisher {
	return PublisherFunc(func(ctx context.Context, it Item) Outcome { return Published("1") })
}

func TestIngestOrderingContract(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	for _, n := range []string{"a", "b"} {
		if _, err := q.Ingest(ctx, []Item{item(n)}); err != nil {
			t.Fatalf("Ingest(%s): %v", n, err)
		}
	}
	items, err := q.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Title != "b" || items[1].Title != "a" {
		t.Fatalf("expected [b a], got %+v", items)
	}
}

func TestIngestBatchPlacedAheadPreservingOrder(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	if _, err := q.Ingest(ctx, []Item{item("old1"), item("old2")}); err != nil {
		t.Fatal(err)
	}
	total, err := q.Ingest(ctx, []Item{item("new1"), item("new2")})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Fatalf("expected total 4, got %d", total)
	}
	items, _ := q.ListAll(ctx)
	want := []string{"new1", "new2", "old1", "old2"}
	for i, w := range want {
		if items[i].Title != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, items[i].Title)
		}
	}
}

func TestIngestEmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	if _, err := q.Ingest(ctx, []Item{item("a")}); err != nil {
		t.Fatal(err)
	}
	total, err := q.Ingest(ctx, nil)
	if err != nil {
		t.Fatalf("empty batch must be legal: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
}

func TestNoLossUnderConcurrentIngestion(t *testing.T) {
	t.Parallel()
	q, path := newTestQueue(t, Options{})
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := q.Ingest(ctx, []Item{item(fmt.Sprintf("item-%d", i))}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Ingest: %v", err)
	}

	items, err := q.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != n {
		t.Fatalf("lost updates: expected %d items, got %d", n, len(items))
	}

	// Document must still be a valid array.
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var arr []Item
	if err := json.Unmarshal(b, &arr); err != nil {
		t.Fatalf("document corrupted: %v", err)
	}
}

func TestConsumeEmptyIsSignalWithZeroWrites(t *testing.T) {
	t.Parallel()
	q, path := newTestQueue(t, Options{})
	ctx := context.Background()

	// Normalize the document so a later byte comparison is meaningful.
	if _, err := q.Ingest(ctx, nil); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	it, err := q.ConsumeNext(ctx, alwaysPublish())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got item=%v err=%v", it, err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatalf("empty consume wrote to the store:\nbefore: %s\nafter: %s", before, after)
	}
}

func TestConsumeFailedRestoresStoreByteForByte(t *testing.T) {
	t.Parallel()
	q, path := newTestQueue(t, Options{})
	ctx := context.Background()

	if _, err := q.Ingest(ctx, []Item{item("a"), item("b")}); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	failing := PublisherFunc(func(ctx context.Context, it Item) Outcome {
		return Failed(errors.New("network down"))
	})
	_, err = q.ConsumeNext(ctx, failing)
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatalf("failed consume did not restore the store:\nbefore: %s\nafter: %s", before, after)
	}
}

func TestConsumeSkippedRemovesExactlyHead(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	if _, err := q.Ingest(ctx, []Item{item("c"), item("b"), item("a")}); err != nil {
		t.Fatal(err)
	}
	skipping := PublisherFunc(func(ctx context.Context, it Item) Outcome {
		return Skipped("content invalid")
	})
	it, err := q.ConsumeNext(ctx, skipping)
	if err != nil {
		t.Fatalf("skip is terminal, not an error: %v", err)
	}
	if it.Title != "c" {
		t.Fatalf("expected head c, got %s", it.Title)
	}

	items, _ := q.ListAll(ctx)
	if len(items) != 2 || items[0].Title != "b" || items[1].Title != "a" {
		t.Fatalf("expected [b a] remaining, got %+v", items)
	}
}

func TestIngestConsumeRoundTrip(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{})
	ctx := context.Background()

	x := item("x")
	if _, err := q.Ingest(ctx, []Item{x}); err != nil {
		t.Fatal(err)
	}
	items, _ := q.ListAll(ctx)
	if len(items) != 1 || items[0].Key() != x.Key() {
		t.Fatalf("ListAll[0] != ingested item: %+v", items)
	}

	var published []string
	recorder := PublisherFunc(func(ctx context.Context, it Item) Outcome {
		published = append(published, it.Title)
		return Published("42")
	})
	got, err := q.ConsumeNext(ctx, recorder)
	if err != nil {
		t.Fatal(err)
	}
	if got.Key() != x.Key() {
		t.Fatalf("consumed wrong item: %+v", got)
	}
	if len(published) != 1 || published[0] != "x" {
		t.Fatalf("publisher saw %v", published)
	}
	items, _ = q.ListAll(ctx)
	if len(items) != 0 {
		t.Fatalf("expected empty queue after consume, got %+v", items)
	}
}

func TestOldestFirstOrder(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{Order: OrderOldestFirst})
	ctx := context.Background()

	if _, err := q.Ingest(ctx, []Item{item("a")}); err != nil {
		t.Fatal(err)
	}
	if _, err := q.Ingest(ctx, []Item{item("b")}); err != nil {
		t.Fatal(err)
	}

	// Oldest-first pops the tail: a was ingested first.
	got, err := q.ConsumeNext(ctx, alwaysPublish())
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "a" {
		t.Fatalf("expected oldest item a, got %s", got.Title)
	}

	// A failed item is restored at the same end.
	failing := PublisherFunc(func(ctx context.Context, it Item) Outcome {
		return Failed(errors.New("boom"))
	})
	if _, err := q.ConsumeNext(ctx, failing); !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("expected ErrPublishFailed, got %v", err)
	}
	got, err = q.ConsumeNext(ctx, alwaysPublish())
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "b" {
		t.Fatalf("expected retried item b, got %s", got.Title)
	}
}

func TestConsumeDoesNotHoldLockDuringPublish(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t, Options{LockTimeout: 2 * time.Second})
	ctx := context.Background()

	if _, err := q.Ingest(ctx, []Item{item("slow")}); err != nil {
		t.Fatal(err)
	}

	ingested := make(chan error, 1)
	slow := PublisherFunc(func(ctx context.Context, it Item) Outcome {
		// While the publish is in flight, another caller must be able to
		// complete a full merge cycle.
		_, err := q.Ingest(ctx, []Item{item("concurrent")})
		ingested <- err
		return Published("1")
	})
	if _, err := q.ConsumeNext(ctx, slow); err != nil {
		t.Fatal(err)
	}
	if err := <-ingested; err != nil {
		t.Fatalf("merge during publish window failed: %v", err)
	}

	items, _ := q.ListAll(ctx)
	if len(items) != 1 || items[0].Title != "concurrent" {
		t.Fatalf("expected [concurrent], got %+v", items)
	}
}

func TestParseOrder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    Order
		wantErr bool
	}{
		{raw: "", want: OrderNewestFirst},
		{raw: "newest-first", want: OrderNewestFirst},
		{raw: "Oldest-First", want: OrderOldestFirst},
		{raw: "fifo", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseOrder(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseOrder(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseOrder(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseOrder(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
