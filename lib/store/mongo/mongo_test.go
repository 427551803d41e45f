//go:build integration

package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/zecdev/lib/store"
)

var uri = "mongodb://localhost:27017"

func TestNewMongo(t *testing.T) {
	m, err := New(uri)
	require.NoError(t, err)
	require.NoError(t, m.CloseMongo())
}

func TestTxs(t *testing.T) {
	m, err := New(uri)
	require.NoError(t, err)
	defer m.CloseMongo()

	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, m.AddTx(ctx, store.TxRecord{
		ID: id, Timestamp: time.Now().UTC(), Kind: store.KindRequest, ToAddress: "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd",
		Amount: 1_000_000_000, TxID: "tx-" + id,
	}))
	require.ErrorIs(t, m.AddTx(ctx, store.TxRecord{ID: id}), store.ErrBadRecord)

	txs, err := m.GetTxs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, id, txs[0].ID)
	assert.Equal(t, uint64(1_000_000_000), txs[0].Amount)
}
