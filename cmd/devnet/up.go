package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/devnet"
	"github.com/tarancss/zecdev/lib/backend"
	"github.com/tarancss/zecdev/lib/block"
	"github.com/tarancss/zecdev/lib/config"
	"github.com/tarancss/zecdev/lib/logging"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/scheduler"
)

// stopTimeout bounds the wait for a running miner job on exit.
const stopTimeout = 15 * time.Second

var errLocked = errors.New("another devnet bootstrapper is running")

func newUpCommand(ctx *commandContext) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap the devnet and keep mining until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, log := ctx.conf, ctx.log

			lock := flock.New(conf.Bootstrap.LockFile)

			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}

			if !ok {
				return fmt.Errorf("%w: %s is locked", errLocked, conf.Bootstrap.LockFile)
			}

			defer func() {
				if err := lock.Unlock(); err != nil {
					log.Warn("failed to release lock", zap.Error(err))
				}
			}()

			node, err := block.Init(conf.Node)
			if err != nil {
				return err
			}
			defer node.Close()

			var m *metrics.Metrics

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				m = metrics.New(reg)

				go func() {
					h := http.NewServeMux()
					h.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

					if err := http.ListenAndServe(metricsAddr, h); err != nil { //nolint:gosec // local metrics endpoint
						log.Error("metrics API", zap.Error(err))
					}
				}()
			}

			timings := devnet.DefaultTimings()
			timings.MinerInterval = conf.Bootstrap.MinerInterval

			sch := scheduler.New(log)
			seq := &devnet.Sequencer{
				Node:      node,
				Faucet:    ctx.faucet(),
				Miner:     devnet.NewMiner(node, log, m),
				Scheduler: sch,
				Fixtures:  conf.Bootstrap.Fixtures,
				Timings:   timings,
				Progress:  devnet.NewProgress(os.Stderr, logging.IsTerminal(os.Stderr), log),
				Metrics:   m,
				Log:       log.Named("bootstrap"),
			}

			if conf.Backend.Kind != config.BackendNone {
				be, err := backend.New(conf.Backend.URI)
				if err != nil {
					return err
				}
				defer be.Close()

				seq.Backend = be
			}

			sctx, stop := signalContext(cmd.Context())
			defer stop()

			start := time.Now()
			rep, err := seq.Run(sctx)

			devnet.PrintSummary(cmd.OutOrStdout(), rep)

			if err != nil {
				return fmt.Errorf("bootstrap failed: %w", err)
			}

			log.Info("devnet ready", zap.Duration("elapsed", time.Since(start)),
				zap.Int("warnings", len(rep.Warnings())), zap.String("fixtures", conf.Bootstrap.Fixtures))
			fmt.Fprintln(cmd.OutOrStdout(), "devnet running, press CTRL+C to stop")

			<-sctx.Done()
			log.Info("stopping continuous miner")

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()

			sch.Stop(stopCtx)

			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics at this address, ie. :9101")

	return cmd
}
