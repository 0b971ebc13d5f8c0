package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// Order decides which end of the document a consumption cycle pops.
//
// The original behavior pops index 0, the most recently ingested item, so
// under sustained ingestion the oldest backlog may never drain. That is
// kept as the default rather than silently changed to FIFO; oldest-first
// is an explicit opt-in.
type Order string

const (
	OrderNewestFirst Order = "newest-first"
	OrderOldestFirst Order = "oldest-first"
)

// ParseOrder maps a config string to an Order, defaulting to newest-first.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(OrderNewestFirst):
		return OrderNewestFirst, nil
	case string(OrderOldestFirst):
		return OrderOldestFirst, nil
	default:
		return "", fmt.Errorf("unknown consume order %q", s)
	}
}

// Options tune a Queue.
type Options struct {
	Order       Order
	LockTimeout time.Duration
}

// Queue combines a Store with its Guard and implements the merge/consume
// protocol. All mutations run under the guard; ListAll does not.
type Queue struct {
	store Store
	guard *Guard
	order Order
	log   logx.Logger
}

func New(store Store, opt Options, log logx.Logger) *Queue {
	if log.IsZero() {
		log = logx.Nop()
	}
	order := opt.Order
	if order == "" {
		order = OrderNewestFirst
	}
	return &Queue{
		store: store,
		guard: NewGuard(store.Path(), opt.LockTimeout),
		order: order,
		log:   log,
	}
}

// Ingest merges a batch into the store, new items placed ahead of
// existing content with each side's internal order preserved. An empty
// batch is a legal no-op that still normalizes the stored document.
// Returns the new total count.
func (q *Queue) Ingest(ctx context.Context, batch []Item) (int, error) {
	total := 0
	err := q.guard.With(ctx, func() error {
		existing, err := q.store.Load(ctx)
		if err != nil {
			return err
		}
		combined := make([]Item, 0, len(batch)+len(existing))
		combined = append(combined, batch...)
		combined = append(combined, existing...)
		if err := q.store.Save(ctx, combined); err != nil {
			return err
		}
		total = len(combined)
		return nil
	})
	if err != nil {
		return 0, err
	}
	q.log.Info("batch ingested",
		logx.Int("batch", len(batch)),
		logx.Int("total", total))
	return total, nil
}

// ConsumeNext removes the next eligible item and hands it to pub.
//
// The pop and the publish are split so the lock is never held across the
// network call: first the head is popped and the remainder committed
// (lock held), then the publish runs (lock released), then on Failed the
// head is restored at its original position (lock held again). During the
// publish window the item is invisible to other consumers.
//
// Published and Skipped are terminal: the removal stands. Only Failed
// restores the item for retry. An empty queue returns ErrEmpty with zero
// writes.
func (q *Queue) ConsumeNext(ctx context.Context, pub Publisher) (*Item, error) {
	head, err := q.popHead(ctx)
	if err != nil {
		return nil, err
	}

	out := pub.Publish(ctx, *head)
	switch out.Status {
	case StatusPublished:
		q.log.Info("item published",
			logx.String("title", head.Title),
			logx.String("post_id", out.PostID))
		return head, nil
	case StatusSkipped:
		q.log.Warn("item skipped and dropped",
			logx.String("title", head.Title),
			logx.String("reason", out.Reason))
		return head, nil
	default:
		if rerr := q.restoreHead(ctx, *head); rerr != nil {
			// The item is now in neither the store nor the caller's hands.
			// Dump it in full so it can be recovered from the log.
			raw, _ := json.Marshal(head)
			q.log.Error("failed item could not be restored",
				logx.Err(rerr),
				logx.String("item", string(raw)))
			return nil, fmt.Errorf("%w: %v (restore failed: %v)", ErrPublishFailed, out.Err, rerr)
		}
		q.log.Warn("publish failed; item restored for retry",
			logx.String("title", head.Title),
			logx.Err(out.Err))
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, out.Err)
	}
}

// popHead atomically removes the next item per the configured order and
// commits the remainder.
func (q *Queue) popHead(ctx context.Context) (*Item, error) {
	var head *Item
	err := q.guard.With(ctx, func() error {
		items, err := q.store.Load(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmpty
		}
		var h Item
		var rest []Item
		if q.order == OrderOldestFirst {
			h = items[len(items)-1]
			rest = items[:len(items)-1]
		} else {
			h = items[0]
			rest = items[1:]
		}
		if err := q.store.Save(ctx, rest); err != nil {
			return err
		}
		head = &h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// restoreHead puts a failed item back at the end it was popped from, so
// the next cycle retries the same item.
func (q *Queue) restoreHead(ctx context.Context, head Item) error {
	return q.guard.With(ctx, func() error {
		items, err := q.store.Load(ctx)
		if err != nil {
			return err
		}
		var combined []Item
		if q.order == OrderOldestFirst {
			combined = append(items, head)
		} else {
			combined = append([]Item{head}, items...)
		}
		return q.store.Save(ctx, combined)
	})
}

// ListAll returns a snapshot of the current items. It runs lock-free:
// reporting tolerates eventual consistency and must not contend with
// read-modify-write cycles.
func (q *Queue) ListAll(ctx context.Context) ([]Item, error) {
	items, err := q.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Len reports the current item count (lock-free snapshot).
func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// IsEmptySignal reports whether err is the "no work available" signal.
func IsEmptySignal(err error) bool { return errors.Is(err, ErrEmpty) }
