package memory

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/zecdev/lib/store"
)

func record(i int) store.TxRecord {
	return store.TxRecord{
		ID:        strconv.Itoa(i),
		Timestamp: time.Unix(int64(i), 0),
		Kind:      store.KindSend,
		ToAddress: "uregtest1",
		Amount:    uint64(i),
		TxID:      "tx" + strconv.Itoa(i),
	}
}

func ids(txs []store.TxRecord) []string {
	res := make([]string, 0, len(txs))
	for _, tx := range txs {
		res = append(res, tx.ID)
	}

	return res
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := New(3)

	txs, err := m.GetTxs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)

	require.ErrorIs(t, m.AddTx(ctx, store.TxRecord{ID: "x"}), store.ErrBadRecord)

	for i := 1; i <= 2; i++ {
		require.NoError(t, m.AddTx(ctx, record(i)))
	}

	txs, _ = m.GetTxs(ctx, 10)
	assert.Equal(t, []string{"1", "2"}, ids(txs))

	for i := 3; i <= 5; i++ {
		require.NoError(t, m.AddTx(ctx, record(i)))
	}

	txs, _ = m.GetTxs(ctx, 0)
	assert.Equal(t, []string{"3", "4", "5"}, ids(txs))

	txs, _ = m.GetTxs(ctx, 2)
	assert.Equal(t, []string{"4", "5"}, ids(txs))
}
