// Package store defines the interface for database implementations of the faucet transaction history.
package store

import (
	"context"
	"errors"
)

// DB defines the methods required to keep the faucet history.
type DB interface {
	// AddTx saves a transaction sent by the faucet.
	AddTx(ctx context.Context, tx TxRecord) error
	// GetTxs returns the last limit transactions, oldest first.
	GetTxs(ctx context.Context, limit int) ([]TxRecord, error)
}

// Errors returned
var (
	ErrDataNotFound = errors.New("data was not found in store")
	ErrBadRecord    = errors.New("transaction record requires id, address and txid")
)

// Validate checks the mandatory fields of a record.
func (t TxRecord) Validate() error {
	if t.ID == "" || t.ToAddress == "" || t.TxID == "" {
		return ErrBadRecord
	}

	return nil
}

// Reverse reverses txs in place. Stores query newest first and return oldest first.
func Reverse(txs []TxRecord) {
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
}
