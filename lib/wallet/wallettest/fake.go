// Package wallettest provides an in-memory wallet for tests.
package wallettest

import (
	"context"
	"sync"
	"time"

	"github.com/tarancss/zecdev/lib/wallet"
)

// Sent records a call to Send.
type Sent struct {
	Address string
	Amount  uint64
	Memo    string
}

// Fake is a programmable wallet. Zero values give an empty wallet whose primitives succeed.
type Fake struct {
	mu sync.Mutex

	Bal       wallet.Balance
	UA        string
	TAddr     string
	TxID      string
	SyncDelay time.Duration // Sync blocks this long or until ctx is done

	SyncErr, BalanceErr, ShieldErr, SendErr error

	// ShieldMoves moves the shielded amount (transparent minus fee) to orchard on ShieldToPool.
	ShieldMoves bool
	ShieldFee   uint64

	calls map[string]int
	sent  []Sent
}

var _ wallet.Wallet = (*Fake)(nil)

func (f *Fake) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

// Calls returns how many times the named primitive was called (Sync, Balance, ShieldToPool, Send, ...).
func (f *Fake) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[name]
}

// Sends returns the recorded Send calls.
func (f *Fake) Sends() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]Sent(nil), f.sent...)
}

// SetBalance replaces the balance.
func (f *Fake) SetBalance(b wallet.Balance) {
	f.mu.Lock()
	f.Bal = b
	f.mu.Unlock()
}

func (f *Fake) Sync(ctx context.Context) (wallet.SyncResult, error) {
	f.count("Sync")

	if f.SyncDelay > 0 {
		t := time.NewTimer(f.SyncDelay)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return wallet.SyncResult{}, ctx.Err()
		case <-t.C:
		}
	}

	if f.SyncErr != nil {
		return wallet.SyncResult{}, f.SyncErr
	}

	return wallet.SyncResult{Height: 200}, nil
}

func (f *Fake) Balance(ctx context.Context) (wallet.Balance, error) {
	f.count("Balance")

	if err := ctx.Err(); err != nil {
		return wallet.Balance{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.Bal, f.BalanceErr
}

func (f *Fake) UnifiedAddress(context.Context) (string, error) {
	f.count("UnifiedAddress")

	if f.UA == "" {
		return "", wallet.ErrNoAddress
	}

	return f.UA, nil
}

func (f *Fake) TransparentAddress(context.Context) (string, error) {
	f.count("TransparentAddress")

	if f.TAddr == "" {
		return "", wallet.ErrNoAddress
	}

	return f.TAddr, nil
}

func (f *Fake) ShieldToPool(context.Context) (string, error) {
	f.count("ShieldToPool")

	if f.ShieldErr != nil {
		return "", f.ShieldErr
	}

	if f.ShieldMoves {
		f.mu.Lock()
		if f.Bal.Transparent > f.ShieldFee {
			f.Bal.Orchard += f.Bal.Transparent - f.ShieldFee
		}
		f.Bal.Transparent = 0
		f.mu.Unlock()
	}

	return f.txid(), nil
}

func (f *Fake) Send(_ context.Context, address string, amount uint64, memo string) (string, error) {
	f.count("Send")

	if f.SendErr != nil {
		return "", f.SendErr
	}

	f.mu.Lock()
	f.sent = append(f.sent, Sent{Address: address, Amount: amount, Memo: memo})
	f.mu.Unlock()

	return f.txid(), nil
}

func (f *Fake) txid() string {
	if f.TxID == "" {
		return "0000000000000000000000000000000000000000000000000000000000000001"
	}

	return f.TxID
}
