// Package main: faucet service. It owns the devnet faucet wallet, keeps it synced in the background and serves the
// faucet RESTful API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tarancss/zecdev/faucet"
	"github.com/tarancss/zecdev/lib/backend"
	"github.com/tarancss/zecdev/lib/block"
	"github.com/tarancss/zecdev/lib/config"
	"github.com/tarancss/zecdev/lib/logging"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/msg/amqp"
	"github.com/tarancss/zecdev/lib/scheduler"
	"github.com/tarancss/zecdev/lib/store/db"
	"github.com/tarancss/zecdev/lib/wallet/zingo"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9100/metrics")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log, err := logging.New(conf.LogLevel, conf.LogDev)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck // nothing to do on stderr sync errors

	if err = run(conf, *monitor, log); err != nil {
		log.Fatal("faucet stopped", zap.Error(err))
	}
}

func run(conf config.ServiceConfig, monitor bool, log *zap.Logger) error {
	log.Info("configuration", zap.String("node", conf.Node.URL), zap.String("backend", conf.Backend.Kind),
		zap.String("db", conf.DBType), zap.String("broker", conf.MbType))

	opts := []faucet.Option{}

	// connect to database
	dbConn, err := db.New(conf.DBType, conf.DBConn)
	if err != nil {
		return err
	}

	opts = append(opts, faucet.WithStore(dbConn))

	// connect to the node, used to validate drip addresses
	node, err := block.Init(conf.Node)
	if err != nil {
		return err
	}
	defer node.Close()

	opts = append(opts, faucet.WithNode(node))

	if conf.Backend.Kind != config.BackendNone {
		be, err := backend.New(conf.Backend.URI)
		if err != nil {
			return err
		}
		defer be.Close()

		opts = append(opts, faucet.WithBackend(be))
	}

	// load Prometheus monitor
	if monitor {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		opts = append(opts, faucet.WithMetrics(metrics.New(reg)))

		go func() {
			log.Info("serving metrics API", zap.String("addr", ":9100"))

			h := http.NewServeMux()
			h.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			if err := http.ListenAndServe(":9100", h); err != nil { //nolint:gosec // local metrics endpoint
				log.Error("metrics API", zap.Error(err))
			}
		}()
	}

	// load message broker
	switch conf.MbType {
	case "amqp":
		mb, err := amqp.New(conf.MbConn, log)
		if err != nil {
			time.Sleep(10 * time.Second) //nolint:gomnd // wait 10s for AMQP to be ready and try to reconnect

			if mb, err = amqp.New(conf.MbConn, log); err != nil {
				return err
			}
		}

		if err = mb.Setup(); err != nil {
			return err
		}

		opts = append(opts, faucet.WithBroker(mb))
	case "":
	default:
		log.Warn("unknown message broker type", zap.String("type", conf.MbType))
	}

	// faucet wallet
	w, err := zingo.New(zingo.Config{
		Binary:  conf.Wallet.Binary,
		Prefix:  conf.Wallet.Prefix,
		DataDir: conf.Wallet.DataDir,
		Server:  conf.Wallet.Server,
		Chain:   conf.Wallet.Chain,
	}, log)
	if err != nil {
		return err
	}

	f := faucet.New(conf.Faucet, w, log, opts...)

	// capture CTRL+C or docker's SIGTERM for gracious exit
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = f.Startup(ctx); err != nil {
		f.Stop()

		return err
	}

	sch := scheduler.New(log)
	if err = sch.Every("sync", conf.Faucet.SyncInterval, f.SyncJob()); err != nil {
		f.Stop()

		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sch.Run(gctx)

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("program killed, stopping")
		// wait for all write operations to end
		f.Stop()

		return nil
	})

	// init RESTful API, wait for its return and log response
	g.Go(func() error {
		res := f.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey)
		log.Info("faucet API stopped", zap.String("result", res))
		stop()

		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
