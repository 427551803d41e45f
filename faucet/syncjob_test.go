package faucet

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/wallet"
	"github.com/tarancss/zecdev/lib/wallet/wallettest"
)

func TestSyncJobBusySkip(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	w := newFake(wallet.Balance{Orchard: 100_000_000})
	c := coordinator.New(w)

	job := NewSyncJob(c, zap.New(core), nil)
	job.AcquireTimeout = 10 * time.Millisecond

	release := holdWallet(t, c)

	for i := 0; i < 3; i++ {
		job.Run()
	}

	assert.Zero(t, w.Calls("Sync"))
	assert.Equal(t, 3, logs.FilterMessage("sync skipped, wallet busy").Len())

	release()
	job.Run()

	assert.Equal(t, 1, w.Calls("Sync"))
	assert.Equal(t, 3, logs.FilterMessage("sync skipped, wallet busy").Len())
	assert.Equal(t, 1, logs.FilterMessage("sync complete").Len())
	assert.Equal(t, uint64(4), job.Cycles())
	assert.False(t, c.Busy())
}

func TestSyncJobFailures(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(w *wallettest.Fake)
		message string
		level   zapcore.Level
	}{
		{"timeout", func(w *wallettest.Fake) { w.SyncDelay = time.Second }, "sync timed out, will retry next cycle",
			zapcore.ErrorLevel},
		{"error", func(w *wallettest.Fake) { w.SyncErr = errors.New("backend gone") }, "sync failed, will retry next cycle",
			zapcore.WarnLevel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			w := newFake(wallet.Balance{})
			tc.setup(w)

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)

			job := NewSyncJob(coordinator.New(w), zap.New(core), m)
			job.Timeout = 20 * time.Millisecond

			job.Run()

			entries := logs.FilterMessage(tc.message).All()
			if assert.Len(t, entries, 1) {
				assert.Equal(t, tc.level, entries[0].Level)
			}

			assert.Zero(t, logs.FilterMessage("sync complete").Len())
			n, err := testutil.GatherAndCount(reg, "zecdev_wallet_sync_total")
			assert.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}
