package devnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/devnet/probe"
	"github.com/tarancss/zecdev/faucet"
	"github.com/tarancss/zecdev/lib/block"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/scheduler"
)

// Timings holds every wait of the bootstrap.
type Timings struct {
	ProbeInterval   time.Duration
	NodeWait        time.Duration
	BackendWait     time.Duration
	WalletWait      time.Duration
	HeightPoll      time.Duration
	MaturityCeiling time.Duration
	GenerateTimeout time.Duration
	PropagateDelay  time.Duration
	SyncWait        time.Duration
	SyncRetryWait   time.Duration
	SyncSettle      time.Duration
	ShieldConfirm   time.Duration
	ResyncWait      time.Duration
	MinerInterval   time.Duration

	MaturityHeight uint64
	ExtraBlocks    int
}

// DefaultTimings returns the timings used against a real devnet.
func DefaultTimings() Timings {
	return Timings{
		ProbeInterval:   time.Second,
		NodeWait:        120 * time.Second,
		BackendWait:     180 * time.Second,
		WalletWait:      120 * time.Second,
		HeightPoll:      2 * time.Second,
		MaturityCeiling: 60000 * time.Second,
		GenerateTimeout: GenerateTimeout,
		PropagateDelay:  10 * time.Second,
		SyncWait:        5 * time.Second,
		SyncRetryWait:   10 * time.Second,
		SyncSettle:      5 * time.Second,
		ShieldConfirm:   20 * time.Second,
		ResyncWait:      15 * time.Second,
		MinerInterval:   MinerInterval,
		MaturityHeight:  101,
		ExtraBlocks:     100,
	}
}

// Backend is the indexing backend. A nil Backend skips WaitBackend.
type Backend interface {
	LatestHeight(ctx context.Context) (uint64, error)
}

// FaucetAPI is the part of the faucet API used by the bootstrap.
type FaucetAPI interface {
	Health(ctx context.Context) (faucet.HealthResponse, error)
	Address(ctx context.Context) (faucet.AddressResponse, error)
	Sync(ctx context.Context) (faucet.SyncResponse, error)
	Stats(ctx context.Context) (faucet.StatsResponse, error)
	Shield(ctx context.Context) (faucet.ShieldResponse, error)
}

// Sequencer bootstraps the devnet: it waits for each service in order, matures the chain, funds the faucet wallet
// and hands block production over to the continuous miner.
type Sequencer struct {
	Node      block.Node
	Backend   Backend
	Faucet    FaucetAPI
	Miner     cron.Job
	Scheduler *scheduler.Scheduler
	Fixtures  string
	Timings   Timings
	Progress  *Progress
	Metrics   *metrics.Metrics
	Log       *zap.Logger

	shielded bool
}

type step struct {
	phase Phase
	run   func(ctx context.Context) Outcome
}

func (s *Sequencer) steps() []step {
	return []step{
		{WaitNode, s.waitNode},
		{WaitBackend, s.waitBackend},
		{WaitWalletService, s.waitWalletService},
		{MineToMaturity, s.mineToMaturity},
		{MineExtra, s.mineExtra},
		{PropagateDelay, s.propagate},
		{GenerateFixtures, s.generateFixtures},
		{SyncWallet, s.syncWallet},
		{CheckBalancePre, s.checkBalance},
		{ShieldFunds, s.shieldFunds},
		{ResyncPostShield, s.resyncPostShield},
		{CheckBalancePost, s.checkBalance},
		{StartContinuousMiner, s.startMiner},
	}
}

// Run walks the phases once. A Fatal outcome stops the run in Failed and returns its error; warnings are collected
// in the report.
func (s *Sequencer) Run(ctx context.Context) (Report, error) {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	rep := Report{Final: Failed}

	for _, st := range s.steps() {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		log := s.Log.With(zap.Stringer("phase", st.phase))
		log.Debug("phase started")

		start := time.Now()
		out := st.run(ctx)
		res := PhaseResult{Phase: st.phase, Outcome: out, Elapsed: time.Since(start)}

		rep.Results = append(rep.Results, res)
		s.Metrics.Phase(st.phase.String(), out.Kind.String())
		s.Progress.Done()

		switch out.Kind {
		case Fatal:
			log.Error("phase failed", zap.Error(out.Err), zap.Duration("elapsed", res.Elapsed))

			return rep, out.Err
		case Warning:
			log.Warn(out.Reason, zap.Duration("elapsed", res.Elapsed))
		default:
			log.Info("phase complete", zap.String("details", out.Reason), zap.Duration("elapsed", res.Elapsed))
		}
	}

	rep.Final = Done

	return rep, nil
}

func (s *Sequencer) wait(ctx context.Context, stage string, limit time.Duration, check probe.Check) Outcome {
	p := probe.Probe{
		Name:       stage,
		Interval:   s.Timings.ProbeInterval,
		MaxElapsed: limit,
		Log:        s.Log,
		Progress:   func(pct int) { s.Progress.Report(stage, pct) },
	}

	st, err := p.Wait(ctx, check)
	if err != nil {
		return fatal(err)
	}

	return ok(fmt.Sprintf("ready after %d attempts", st.Attempts))
}

func (s *Sequencer) waitNode(ctx context.Context) Outcome {
	return s.wait(ctx, "zebra", s.Timings.NodeWait, func(ctx context.Context) error {
		_, err := s.Node.BlockHeight(ctx)

		return err
	})
}

func (s *Sequencer) waitBackend(ctx context.Context) Outcome {
	if s.Backend == nil {
		return ok("skipped, no backend")
	}

	return s.wait(ctx, "backend", s.Timings.BackendWait, func(ctx context.Context) error {
		_, err := s.Backend.LatestHeight(ctx)

		return err
	})
}

var errNotHealthy = errors.New("faucet not reporting healthy status")

func (s *Sequencer) waitWalletService(ctx context.Context) Outcome {
	return s.wait(ctx, "faucet", s.Timings.WalletWait, func(ctx context.Context) error {
		h, err := s.Faucet.Health(ctx)
		if err != nil {
			return err
		}

		if h.Status != "healthy" {
			return fmt.Errorf("%w: %q", errNotHealthy, h.Status)
		}

		return nil
	})
}

// mineToMaturity waits for the node's internal miner to reach the coinbase maturity height.
func (s *Sequencer) mineToMaturity(ctx context.Context) Outcome {
	target := s.Timings.MaturityHeight
	start := time.Now()

	for {
		h, err := s.Node.BlockHeight(ctx)
		if err == nil {
			if h >= target {
				s.Progress.Report("mining initial blocks", 100)

				return ok(fmt.Sprintf("height %d", h))
			}

			s.Progress.Report("mining initial blocks", int(h*100/target))
		}

		if time.Since(start) > s.Timings.MaturityCeiling {
			return warn(fmt.Sprintf("blocks not reaching maturity height %d", target))
		}

		if err := sleep(ctx, s.Timings.HeightPoll); err != nil {
			return warnErr(err)
		}
	}
}

func (s *Sequencer) mineExtra(ctx context.Context) Outcome {
	n, mined := s.Timings.ExtraBlocks, 0

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return warnErr(err)
		}

		gctx, cancel := context.WithTimeout(ctx, s.Timings.GenerateTimeout)
		_, err := s.Node.Generate(gctx, 1)

		cancel()
		s.Metrics.BlockMined(err == nil)

		if err == nil {
			mined++
		}

		if i%10 == 0 {
			s.Progress.Report("mining additional blocks", i*100/n)
			s.Log.Debug("mining additional blocks", zap.Int("requested", i), zap.Int("of", n))
		}
	}

	return ok(fmt.Sprintf("%d of %d blocks accepted", mined, n))
}

func (s *Sequencer) propagate(ctx context.Context) Outcome {
	if err := sleep(ctx, s.Timings.PropagateDelay); err != nil {
		return warnErr(err)
	}

	return ok("")
}

func (s *Sequencer) generateFixtures(ctx context.Context) Outcome {
	addr, err := s.Faucet.Address(ctx)
	if err != nil {
		return warnErr(fmt.Errorf("could not get faucet address: %w", err))
	}

	if err = WriteFixture(s.Fixtures, addr.UnifiedAddress); err != nil {
		return warnErr(err)
	}

	if addr.TransparentAddress != DefaultTransparentAddress {
		return warn(fmt.Sprintf("address mismatch: expected %s, got %s; mining rewards will not reach the faucet",
			DefaultTransparentAddress, addr.TransparentAddress))
	}

	return ok(s.Fixtures)
}

// syncOnce syncs through the faucet, retrying once after SyncRetryWait, then lets the wallet settle.
func (s *Sequencer) syncOnce(ctx context.Context) error {
	_, err := s.Faucet.Sync(ctx)
	if err != nil {
		s.Log.Warn("wallet sync failed, will retry", zap.Error(err))

		if err = sleep(ctx, s.Timings.SyncRetryWait); err != nil {
			return err
		}

		_, err = s.Faucet.Sync(ctx)
	}

	if serr := sleep(ctx, s.Timings.SyncSettle); serr != nil && err == nil {
		err = serr
	}

	return err
}

func (s *Sequencer) syncWallet(ctx context.Context) Outcome {
	if err := sleep(ctx, s.Timings.SyncWait); err != nil {
		return warnErr(err)
	}

	if err := s.syncOnce(ctx); err != nil {
		return warnErr(fmt.Errorf("wallet sync: %w", err))
	}

	return ok("synced")
}

func (s *Sequencer) checkBalance(ctx context.Context) Outcome {
	st, err := s.Faucet.Stats(ctx)
	if err != nil {
		return warnErr(fmt.Errorf("could not check balance: %w", err))
	}

	reason := fmt.Sprintf("transparent %.8f ZEC, orchard %.8f ZEC, total %.8f ZEC",
		st.TransparentBalance, st.OrchardBalance, st.CurrentBalance)

	if st.CurrentBalance == 0 {
		return warn("wallet has no funds: the node did not mine to the faucet address")
	}

	return ok(reason)
}

func (s *Sequencer) shieldFunds(ctx context.Context) Outcome {
	res, err := s.Faucet.Shield(ctx)
	if err != nil {
		return warnErr(fmt.Errorf("shield: %w", err))
	}

	if res.Status != faucet.StatusShielded {
		return warn(fmt.Sprintf("shield: %s", res.Status))
	}

	s.shielded = true

	// no confirmation is available from the faucet, give the miner time to include the tx
	if err = sleep(ctx, s.Timings.ShieldConfirm); err != nil {
		return warnErr(err)
	}

	return ok(fmt.Sprintf("shielded %.8f ZEC, txid %s", res.ShieldedAmount, res.TxID))
}

func (s *Sequencer) resyncPostShield(ctx context.Context) Outcome {
	if !s.shielded {
		return ok("skipped, nothing shielded")
	}

	if err := sleep(ctx, s.Timings.ResyncWait); err != nil {
		return warnErr(err)
	}

	if err := s.syncOnce(ctx); err != nil {
		return warnErr(fmt.Errorf("post-shield sync: %w", err))
	}

	return ok("synced")
}

func (s *Sequencer) startMiner(context.Context) Outcome {
	if s.Scheduler == nil || s.Miner == nil {
		return warn("continuous miner not configured")
	}

	if err := s.Scheduler.Every("miner", s.Timings.MinerInterval, s.Miner); err != nil {
		return warnErr(err)
	}

	s.Scheduler.Start()

	return ok(fmt.Sprintf("one block every %s", s.Timings.MinerInterval))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
