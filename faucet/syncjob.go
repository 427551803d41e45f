package faucet

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/util"
	"github.com/tarancss/zecdev/lib/wallet"
)

// Sync job defaults.
const (
	SyncAcquireTimeout = 2 * time.Second
	SyncTimeout        = 90 * time.Second
)

// SyncJob syncs the wallet on every run. It implements cron.Job. A run that finds the wallet busy is skipped and
// nothing is queued; errors are logged and never escalated.
type SyncJob struct {
	coord *coordinator.Coordinator
	log   *zap.Logger
	m     *metrics.Metrics

	AcquireTimeout time.Duration
	Timeout        time.Duration

	cycles atomic.Uint64
}

// NewSyncJob returns a sync job with the default timeouts.
func NewSyncJob(c *coordinator.Coordinator, log *zap.Logger, m *metrics.Metrics) *SyncJob {
	return &SyncJob{
		coord:          c,
		log:            log.Named("sync"),
		m:              m,
		AcquireTimeout: SyncAcquireTimeout,
		Timeout:        SyncTimeout,
	}
}

// Run runs one sync cycle.
func (j *SyncJob) Run() {
	j.RunContext(context.Background())
}

// Cycles returns the number of cycles run so far.
func (j *SyncJob) Cycles() uint64 {
	return j.cycles.Load()
}

// RunContext runs one sync cycle bound to ctx.
func (j *SyncJob) RunContext(ctx context.Context) {
	n := j.cycles.Add(1)
	log := j.log.With(zap.Uint64("cycle", n))

	log.Debug("background sync attempt")

	res, err := coordinator.Mutate(ctx, j.coord, j.AcquireTimeout,
		func(ctx context.Context, w wallet.Wallet) (wallet.SyncResult, error) {
			sctx, cancel := context.WithTimeout(ctx, j.Timeout)
			defer cancel()

			return w.Sync(sctx)
		})

	switch {
	case errors.Is(err, coordinator.ErrBusy):
		log.Debug("sync skipped, wallet busy")
		j.m.Sync(metrics.ResultSkipped)

		return
	case errors.Is(err, coordinator.ErrOperationTimeout):
		log.Error("sync timed out, will retry next cycle", zap.Duration("timeout", j.Timeout))
		j.m.Sync(metrics.ResultTimeout)

		return
	case err != nil:
		log.Warn("sync failed, will retry next cycle", zap.Error(err))
		j.m.Sync(metrics.ResultError)

		return
	}

	j.m.Sync(metrics.ResultOK)

	bal, err := coordinator.Query(ctx, j.coord, func(ctx context.Context, w wallet.Wallet) (wallet.Balance, error) {
		return w.Balance(ctx)
	})
	if err != nil {
		log.Warn("sync complete, balance check failed", zap.Uint64("height", res.Height), zap.Error(err))

		return
	}

	j.m.Balance(bal.Transparent, bal.Sapling, bal.Orchard)
	log.Info("sync complete", zap.Uint64("height", res.Height), zap.String("balance", util.ZEC(bal.Total()).String()))
}
