// Package coordinator mediates access to the single wallet shared by the API handlers and the background jobs.
//
// Reads run under shared access and never block each other. Writes take exclusive access: they wait at most the
// given acquire timeout and report ErrBusy instead of queuing behind a long running operation. The hold is tied to
// the call, so nothing outside this package ever sees the lock.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tarancss/zecdev/lib/wallet"
)

// exclusive is the semaphore weight of a writer. Readers take 1, so a writer excludes up to exclusive-1 readers.
const exclusive = 1 << 16

// Errors returned.
var (
	ErrBusy             = errors.New("wallet busy")
	ErrOperationTimeout = errors.New("wallet operation timed out")
)

// Coordinator guards one wallet.
type Coordinator struct {
	w   wallet.Wallet
	sem *semaphore.Weighted
}

// New returns a coordinator for w.
func New(w wallet.Wallet) *Coordinator {
	return &Coordinator{w: w, sem: semaphore.NewWeighted(exclusive)}
}

// Op is an operation run against the wallet. It must return when ctx is done.
type Op[T any] func(ctx context.Context, w wallet.Wallet) (T, error)

// Query runs op with shared access. It waits for any in-flight Mutate to finish, or for ctx.
func Query[T any](ctx context.Context, c *Coordinator, op Op[T]) (T, error) {
	var zero T

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("acquire shared access: %w", err)
	}
	defer c.sem.Release(1)

	return wrap(op(ctx, c.w))
}

// Mutate runs op with exclusive access. If access is not granted within acquireTimeout it returns ErrBusy without
// running op. A zero acquireTimeout only succeeds when the wallet is idle.
func Mutate[T any](ctx context.Context, c *Coordinator, acquireTimeout time.Duration, op Op[T]) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	if !c.acquire(ctx, acquireTimeout) {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		return zero, ErrBusy
	}
	defer c.sem.Release(exclusive)

	return wrap(op(ctx, c.w))
}

func (c *Coordinator) acquire(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		return c.sem.TryAcquire(exclusive)
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return c.sem.Acquire(actx, exclusive) == nil
}

// wrap maps deadline errors to ErrOperationTimeout.
func wrap[T any](v T, err error) (T, error) {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrOperationTimeout) {
		err = fmt.Errorf("%w: %w", ErrOperationTimeout, err)
	}

	return v, err
}

// Busy reports whether a writer holds or waits for the wallet.
func (c *Coordinator) Busy() bool {
	if c.sem.TryAcquire(1) {
		c.sem.Release(1)

		return false
	}

	return true
}
