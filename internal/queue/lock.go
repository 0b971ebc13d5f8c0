package queue

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 10 * time.Millisecond

// Guard is the exclusive lock serializing every read-modify-write cycle
// against a store path, across goroutines and across processes.
//
// flock alone is not enough: the advisory lock is held per file
// descriptor, so two goroutines sharing one descriptor would both pass.
// An in-process gate in front of the flock closes that hole.
type Guard struct {
	gate    chan struct{}
	fl      *flock.Flock
	timeout time.Duration
}

// NewGuard creates a guard scoped to path. The lock file lives next to
// the durable document so independent processes agree on it.
func NewGuard(path string, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Guard{
		gate:    make(chan struct{}, 1),
		fl:      flock.New(path + ".lock"),
		timeout: timeout,
	}
}

// With runs fn while holding the exclusive lock. The lock is released on
// every exit path. Returns ErrLockTimeout when the bound is exceeded.
func (g *Guard) With(ctx context.Context, fn func() error) error {
	release, err := g.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (g *Guard) acquire(ctx context.Context) (func(), error) {
	deadline := time.NewTimer(g.timeout)
	defer deadline.Stop()

	select {
	case g.gate <- struct{}{}:
	case <-deadline.C:
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lockCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ok, err := g.fl.TryLockContext(lockCtx, lockRetryDelay)
	if !ok {
		<-g.gate
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}

	return func() {
		_ = g.fl.Unlock()
		<-g.gate
	}, nil
}
