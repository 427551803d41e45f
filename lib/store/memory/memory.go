// Package memory implements the store interface in memory. It keeps the last records only and is used when no
// database is configured.
package memory

import (
	"context"
	"sync"

	"github.com/tarancss/zecdev/lib/store"
)

// DefaultSize is the number of records kept by default.
const DefaultSize = 1000

// Memory is a ring of transaction records.
type Memory struct {
	mu   sync.RWMutex
	txs  []store.TxRecord
	next int
	full bool
}

// New returns a store keeping the last size records.
func New(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}

	return &Memory{txs: make([]store.TxRecord, size)}
}

// AddTx saves a record, overwriting the oldest one when full.
func (m *Memory) AddTx(_ context.Context, tx store.TxRecord) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.txs[m.next] = tx

	m.next = (m.next + 1) % len(m.txs)
	if m.next == 0 {
		m.full = true
	}

	return nil
}

// GetTxs returns the last limit records, oldest first.
func (m *Memory) GetTxs(_ context.Context, limit int) ([]store.TxRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.txs)
	}

	if limit <= 0 || limit > n {
		limit = n
	}

	res := make([]store.TxRecord, 0, limit)

	for i := limit; i > 0; i-- {
		res = append(res, m.txs[(m.next-i+len(m.txs))%len(m.txs)])
	}

	return res, nil
}
