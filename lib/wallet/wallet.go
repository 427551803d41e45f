// Package wallet defines the interface to the wallet library the faucet drives. The wallet holds the keys and notes of
// a single account and exposes only the primitives needed to sync it, read balances and addresses, shield
// transparent funds and send from the shielded pool.
package wallet

import (
	"context"
	"errors"
	"math"
)

// Wallet is the set of primitives the wallet library offers. Implementations must honor ctx: when it expires the call
// must return so that callers holding exclusive access can release it.
type Wallet interface {
	Sync(ctx context.Context) (SyncResult, error)
	Balance(ctx context.Context) (Balance, error)
	UnifiedAddress(ctx context.Context) (string, error)
	TransparentAddress(ctx context.Context) (string, error)
	// ShieldToPool moves all transparent funds to the orchard pool and returns the txid.
	ShieldToPool(ctx context.Context) (string, error)
	// Send broadcasts amount zatoshis from the orchard pool to address and returns the txid.
	Send(ctx context.Context, address string, amount uint64, memo string) (string, error)
}

// Balance holds the wallet balance per pool in zatoshis.
type Balance struct {
	Transparent uint64 `json:"transparent"`
	Sapling     uint64 `json:"sapling"`
	Orchard     uint64 `json:"orchard"`
}

// Total returns the sum of all pools, saturating at math.MaxUint64.
func (b Balance) Total() uint64 {
	t := b.Transparent
	for _, v := range []uint64{b.Sapling, b.Orchard} {
		if t > math.MaxUint64-v {
			return math.MaxUint64
		}
		t += v
	}

	return t
}

// SyncResult reports the outcome of a wallet sync.
type SyncResult struct {
	Height uint64 `json:"height"`
	Output string `json:"output,omitempty"`
}

// Errors returned by wallet implementations.
var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrNoAddress         = errors.New("wallet has no address of the requested kind")
)
