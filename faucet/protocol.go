package faucet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/msg/types"
	"github.com/tarancss/zecdev/lib/store"
	"github.com/tarancss/zecdev/lib/util"
	"github.com/tarancss/zecdev/lib/wallet"
)

// ShieldFee is the fee in zatoshis paid to move transparent funds to the orchard pool.
const ShieldFee uint64 = 10_000

// Statuses returned by the API.
const (
	StatusShielded            = "shielded"
	StatusNoFunds             = "no_funds"
	StatusSent                = "sent"
	StatusSynced              = "synced"
	StatusInsufficientFunds   = "insufficient_funds"
	StatusInsufficientBalance = "insufficient_balance"
	StatusBadRequest          = "bad_request"
	StatusBusy                = "busy"
	StatusTimeout             = "timeout"
	StatusFailed              = "failed"
)

// Regtest address prefixes accepted by /request.
var regtestPrefixes = []string{"tm", "uregtest", "zregtestsapling"} //nolint:gochecknoglobals // constant list

// Errors returned to client requests.
var (
	ErrInsufficientFunds   = errors.New("insufficient funds to cover transaction fee")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrBadRequest          = errors.New("bad request")
)

// InsufficientBalanceError names the orchard balance needed and available, in zatoshis.
type InsufficientBalanceError struct {
	Need, Have uint64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("need %s ZEC in orchard, have %s ZEC", util.ZEC(e.Need), util.ZEC(e.Have))
}

// Is makes errors.Is(err, ErrInsufficientBalance) hold.
func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// ShieldResult is the result of Shield. Amounts are in zatoshis.
type ShieldResult struct {
	Status            string
	TransparentAmount uint64
	ShieldedAmount    uint64
	Fee               uint64
	TxID              string
}

// SendRequest asks to send Amount ZEC from the orchard pool to Address.
type SendRequest struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Memo    string          `json:"memo,omitempty"`
}

// DripRequest asks the faucet for funds. A missing amount means the configured default.
type DripRequest struct {
	Address string              `json:"address"`
	Amount  decimal.NullDecimal `json:"amount"`
}

// SendResult is the result of Send. Balance is read right after the broadcast and may not include it yet.
type SendResult struct {
	Status    string
	TxID      string
	ToAddress string
	Amount    uint64
	Memo      string
	Balance   wallet.Balance
	Timestamp time.Time
}

// Shield moves the whole transparent balance, minus ShieldFee, to the orchard pool. An empty transparent pool is
// not an error: it returns a no_funds result. The caller waits for confirmation.
func (f *Faucet) Shield(ctx context.Context) (ShieldResult, error) {
	res, err := coordinator.Mutate(ctx, f.coord, f.acquireTO,
		func(ctx context.Context, w wallet.Wallet) (ShieldResult, error) {
			bal, err := w.Balance(ctx)
			if err != nil {
				return ShieldResult{}, fmt.Errorf("read balance: %w", err)
			}

			if bal.Transparent == 0 {
				return ShieldResult{Status: StatusNoFunds}, nil
			}

			if bal.Transparent <= ShieldFee {
				return ShieldResult{}, fmt.Errorf("%w: transparent %d zat, fee %d zat",
					ErrInsufficientFunds, bal.Transparent, ShieldFee)
			}

			txid, err := w.ShieldToPool(ctx)
			if err != nil {
				return ShieldResult{}, fmt.Errorf("shield: %w", err)
			}

			return ShieldResult{
				Status:            StatusShielded,
				TransparentAmount: bal.Transparent,
				ShieldedAmount:    bal.Transparent - ShieldFee,
				Fee:               ShieldFee,
				TxID:              txid,
			}, nil
		})

	f.m.WalletOp("shield", opResult(err))

	if err != nil {
		return res, err
	}

	if res.Status == StatusShielded {
		f.log.Info("funds shielded", zap.String("txid", res.TxID), zap.Uint64("amount", res.ShieldedAmount))
		f.publish(types.Event{Kind: types.SHIELD, TxID: res.TxID, Amount: res.ShieldedAmount})
	}

	return res, nil
}

// Send sends req.Amount ZEC from the orchard pool to req.Address and records it in the history.
func (f *Faucet) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	return f.send(ctx, req, store.KindSend)
}

// Request validates a faucet drip request and sends the funds.
func (f *Faucet) Request(ctx context.Context, req DripRequest) (SendResult, error) {
	f.requests.Add(1)

	if err := f.ValidateAddress(ctx, req.Address); err != nil {
		return SendResult{}, err
	}

	amount := decimal.NewFromFloat(f.conf.DefaultAmount)
	if req.Amount.Valid {
		amount = req.Amount.Decimal
	}

	lo, hi := decimal.NewFromFloat(f.conf.MinAmount), decimal.NewFromFloat(f.conf.MaxAmount)
	if amount.LessThan(lo) || amount.GreaterThan(hi) {
		return SendResult{}, fmt.Errorf("%w: %s ZEC is outside [%s, %s]", ErrInvalidAmount, amount, lo, hi)
	}

	return f.send(ctx, SendRequest{Address: req.Address, Amount: amount, Memo: "zecdev faucet"}, store.KindRequest)
}

// ValidateAddress checks addr is a regtest address. When a node is configured it must also accept it; an
// unreachable node does not reject the address.
func (f *Faucet) ValidateAddress(ctx context.Context, addr string) error {
	addr = strings.TrimSpace(addr)
	if !util.HasPrefix(addr, regtestPrefixes...) {
		return fmt.Errorf("%w: %q is not a regtest address", ErrInvalidAddress, addr)
	}

	if f.node == nil {
		return nil
	}

	ok, err := f.node.ValidateAddress(ctx, addr)
	if err != nil {
		f.log.Warn("node address validation unavailable", zap.Error(err))

		return nil
	}

	if !ok {
		return fmt.Errorf("%w: rejected by node", ErrInvalidAddress)
	}

	return nil
}

func (f *Faucet) send(ctx context.Context, req SendRequest, kind string) (SendResult, error) {
	addr := strings.TrimSpace(req.Address)
	if addr == "" {
		return SendResult{}, fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}

	zat, err := util.ToZatoshis(req.Amount)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}

	res, err := coordinator.Mutate(ctx, f.coord, f.acquireTO,
		func(ctx context.Context, w wallet.Wallet) (SendResult, error) {
			bal, err := w.Balance(ctx)
			if err != nil {
				return SendResult{}, fmt.Errorf("read balance: %w", err)
			}

			if bal.Orchard < zat {
				return SendResult{}, &InsufficientBalanceError{Need: zat, Have: bal.Orchard}
			}

			txid, err := w.Send(ctx, addr, zat, req.Memo)
			if err != nil {
				return SendResult{}, fmt.Errorf("send: %w", err)
			}

			after, err := w.Balance(ctx)
			if err != nil {
				f.log.Warn("balance after send", zap.String("txid", txid), zap.Error(err))

				after = bal
			}

			return SendResult{
				Status:    StatusSent,
				TxID:      txid,
				ToAddress: addr,
				Amount:    zat,
				Memo:      req.Memo,
				Balance:   after,
				Timestamp: time.Now().UTC(),
			}, nil
		})

	f.m.WalletOp(kind, opResult(err))

	if err != nil {
		return res, err
	}

	f.sent.Add(zat)
	f.m.Balance(res.Balance.Transparent, res.Balance.Sapling, res.Balance.Orchard)
	f.log.Info("funds sent", zap.String("kind", kind), zap.String("txid", res.TxID),
		zap.String("to", addr), zap.String("amount", util.ZEC(zat).String()))

	rec := store.TxRecord{
		ID:        uuid.NewString(),
		Timestamp: res.Timestamp,
		Kind:      kind,
		ToAddress: addr,
		Amount:    zat,
		TxID:      res.TxID,
		Memo:      req.Memo,
	}
	if err := f.db.AddTx(ctx, rec); err != nil {
		f.log.Error("saving transaction history", zap.String("txid", res.TxID), zap.Error(err))
	}

	f.publish(types.Event{Kind: kind, TxID: res.TxID, ToAddress: addr, Amount: zat, Timestamp: res.Timestamp})

	return res, nil
}

// Sync syncs the wallet with the backend.
func (f *Faucet) Sync(ctx context.Context) (wallet.SyncResult, error) {
	res, err := coordinator.Mutate(ctx, f.coord, f.acquireTO,
		func(ctx context.Context, w wallet.Wallet) (wallet.SyncResult, error) {
			return w.Sync(ctx)
		})

	f.m.WalletOp("sync", opResult(err))

	if err == nil {
		f.publish(types.Event{Kind: types.SYNC, Height: res.Height})
	}

	return res, err
}

// Addresses returns the unified and transparent addresses of the wallet.
func (f *Faucet) Addresses(ctx context.Context) (ua, taddr string, err error) {
	type pair struct{ ua, t string }

	p, err := coordinator.Query(ctx, f.coord, func(ctx context.Context, w wallet.Wallet) (pair, error) {
		ua, err := w.UnifiedAddress(ctx)
		if err != nil {
			return pair{}, err
		}

		t, err := w.TransparentAddress(ctx)

		return pair{ua, t}, err
	})

	return p.ua, p.t, err
}

// Stats are the faucet figures served by /stats.
type Stats struct {
	Balance       wallet.Balance
	Address       string
	TotalRequests uint64
	TotalSent     uint64 // zatoshis
	Uptime        time.Duration
}

// Stats reads the balance and address and returns them with the counters.
func (f *Faucet) Stats(ctx context.Context) (Stats, error) {
	st := Stats{TotalRequests: f.requests.Load(), TotalSent: f.sent.Load(), Uptime: f.Uptime()}

	type snap struct {
		bal wallet.Balance
		ua  string
	}

	s, err := coordinator.Query(ctx, f.coord, func(ctx context.Context, w wallet.Wallet) (snap, error) {
		bal, err := w.Balance(ctx)
		if err != nil {
			return snap{}, err
		}

		ua, err := w.UnifiedAddress(ctx)

		return snap{bal, ua}, err
	})
	if err != nil {
		return st, err
	}

	st.Balance, st.Address = s.bal, s.ua
	f.m.Balance(s.bal.Transparent, s.bal.Sapling, s.bal.Orchard)

	return st, nil
}

// History returns the last limit transactions sent by the faucet, oldest first.
func (f *Faucet) History(ctx context.Context, limit int) ([]store.TxRecord, error) {
	return f.db.GetTxs(ctx, limit)
}

func (f *Faucet) publish(e types.Event) {
	if f.mb == nil {
		return
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := f.mb.SendEvent(e); err != nil {
		f.log.Warn("publishing event", zap.String("kind", e.Kind), zap.Error(err))
	}
}

func opResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, coordinator.ErrBusy):
		return metrics.ResultBusy
	case errors.Is(err, coordinator.ErrOperationTimeout):
		return metrics.ResultTimeout
	}

	return metrics.ResultError
}
