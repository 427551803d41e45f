package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/zecdev/lib/store"
)

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := New(path)
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, addr := range []string{"uregtest1a", "uregtest1b", "tmC"} {
		require.NoError(t, s.AddTx(ctx, store.TxRecord{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Kind:      store.KindRequest,
			ToAddress: addr,
			Amount:    uint64(i+1) * 100_000_000,
			TxID:      "txid" + addr,
			Memo:      "drip",
		}))
	}

	require.ErrorIs(t, s.AddTx(ctx, store.TxRecord{}), store.ErrBadRecord)

	txs, err := s.GetTxs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "uregtest1b", txs[0].ToAddress)
	assert.Equal(t, "tmC", txs[1].ToAddress)
	assert.Equal(t, uint64(300_000_000), txs[1].Amount)
	assert.True(t, base.Add(2*time.Minute).Equal(txs[1].Timestamp))

	all, err := s.GetTxs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.CloseSQLite())

	// reopening keeps the history
	s, err = New(path)
	require.NoError(t, err)
	defer s.CloseSQLite()

	all, err = s.GetTxs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
