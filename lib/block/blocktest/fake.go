// Package blocktest provides an in-memory node for tests.
package blocktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tarancss/zecdev/lib/block"
)

// Fake is a programmable node. Generate mines instantly, raising the height.
type Fake struct {
	mu sync.Mutex

	Height      uint64
	PingErr     error
	HeightErr   error
	GenerateErr error
	// Valid decides ValidateAddress. Nil accepts every address.
	Valid       func(address string) bool
	ValidateErr error

	generated int
}

var _ block.Node = (*Fake)(nil)

func (f *Fake) BlockHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Height, f.HeightErr
}

func (f *Fake) Generate(ctx context.Context, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.generated += n

	if f.GenerateErr != nil {
		return nil, f.GenerateErr
	}

	hashes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		f.Height++
		hashes = append(hashes, fmt.Sprintf("%064x", f.Height))
	}

	return hashes, nil
}

// Generated returns the number of blocks requested so far, including failed requests.
func (f *Fake) Generated() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.generated
}

// SetHeight sets the chain height.
func (f *Fake) SetHeight(h uint64) {
	f.mu.Lock()
	f.Height = h
	f.mu.Unlock()
}

func (f *Fake) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.PingErr
}

func (f *Fake) ValidateAddress(_ context.Context, address string) (bool, error) {
	if f.ValidateErr != nil {
		return false, f.ValidateErr
	}

	if f.Valid == nil {
		return true, nil
	}

	return f.Valid(address), nil
}

func (f *Fake) Close() {}
