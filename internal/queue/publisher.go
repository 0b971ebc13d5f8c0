package queue

import "context"

// Status is the terminal classification of one publish attempt.
type Status int

const (
	// StatusPublished means the item went out; removal is committed.
	StatusPublished Status = iota
	// StatusSkipped means the item was deliberately dropped (e.g. content
	// invalid). Removal is committed. Skipped is terminal; it is never a
	// stand-in for a transient failure.
	StatusSkipped
	// StatusFailed means the publisher could not complete. The item is
	// restored and retried on the next cycle.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPublished:
		return "published"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports what happened to one publish attempt.
type Outcome struct {
	Status Status
	PostID string // set when Status == StatusPublished, if the target reports one
	Reason string // set when Status == StatusSkipped
	Err    error  // set when Status == StatusFailed
}

func Published(postID string) Outcome { return Outcome{Status: StatusPublished, PostID: postID} }
func Skipped(reason string) Outcome   { return Outcome{Status: StatusSkipped, Reason: reason} }
func Failed(err error) Outcome        { return Outcome{Status: StatusFailed, Err: err} }

// Publisher attempts to publish one item and reports the outcome.
// Implementations must not panic on malformed items; classify them as
// Skipped instead.
type Publisher interface {
	Publish(ctx context.Context, it Item) Outcome
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, it Item) Outcome

func (f PublisherFunc) Publish(ctx context.Context, it Item) Outcome { return f(ctx, it) }
