package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.BlockMined(true)
		m.Sync(ResultSkipped)
		m.WalletOp("send", ResultOK)
		m.Balance(1, 2, 3)
		m.Phase("WaitNode", "success")
	})
}

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.BlockMined(true)
	m.BlockMined(false)
	m.BlockMined(false)
	m.Sync(ResultSkipped)
	m.Balance(10, 0, 990)

	assert.InDelta(t, 1, testutil.ToFloat64(m.blocksMined.WithLabelValues(ResultOK)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.blocksMined.WithLabelValues(ResultError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.syncs.WithLabelValues(ResultSkipped)), 0)
	assert.InDelta(t, 990, testutil.ToFloat64(m.balance.WithLabelValues("orchard")), 0)

	n, err := testutil.GatherAndCount(reg, "zecdev_blocks_mined_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
