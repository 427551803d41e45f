// Package faucet implements the faucet wallet microservice.
//
// The service exposes a RESTful API over a single zingo wallet. Reads (addresses, balances, stats) share the wallet,
// while sync, shield and send take it exclusively through the coordinator and fail fast with 503 when it stays busy.
// A background job syncs the wallet every minute and skips its turn instead of queuing behind a request.
package faucet

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tarancss/zecdev/devnet/probe"
	"github.com/tarancss/zecdev/lib/block"
	"github.com/tarancss/zecdev/lib/config"
	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/metrics"
	"github.com/tarancss/zecdev/lib/msg"
	"github.com/tarancss/zecdev/lib/store"
	"github.com/tarancss/zecdev/lib/store/db"
	"github.com/tarancss/zecdev/lib/store/memory"
	"github.com/tarancss/zecdev/lib/util"
	"github.com/tarancss/zecdev/lib/wallet"
)

// Version is reported by /health and the home page.
var Version = "0.3.0" //nolint:gochecknoglobals // set with -ldflags

const (
	opAcquireTimeout   = 5 * time.Second
	initialSyncTimeout = 120 * time.Second
	backendInterval    = 5 * time.Second
	backendLogEvery    = 30 * time.Second
	historySize        = 1000
)

// Backend is the indexing backend the wallet syncs from.
type Backend interface {
	LatestHeight(ctx context.Context) (uint64, error)
}

// Faucet contains the data necessary to deliver the service
type Faucet struct {
	conf  config.FaucetConfig
	coord *coordinator.Coordinator
	node  block.Node // optional, used to validate addresses
	be    Backend    // optional, waited for at startup
	db    store.DB
	mb    msg.Broker
	m     *metrics.Metrics
	log   *zap.Logger

	started   time.Time
	requests  atomic.Uint64
	sent      atomic.Uint64 // zatoshis
	acquireTO time.Duration
	beEvery   time.Duration

	mu       sync.Mutex   // guards s, ss and stopped
	s        *http.Server // http server
	ss       *http.Server // https server
	stopped  bool
	stopOnce sync.Once
	sc       chan struct{} // closed when the servers have been shut down
}

// Option configures a Faucet.
type Option func(*Faucet)

// WithNode lets the faucet validate addresses against the node.
func WithNode(n block.Node) Option { return func(f *Faucet) { f.node = n } }

// WithBackend makes Startup wait for the indexing backend.
func WithBackend(b Backend) Option { return func(f *Faucet) { f.be = b } }

// WithStore sets the transaction history store. The default keeps the history in memory.
func WithStore(s store.DB) Option { return func(f *Faucet) { f.db = s } }

// WithBroker publishes faucet events to mb.
func WithBroker(mb msg.Broker) Option { return func(f *Faucet) { f.mb = mb } }

// WithMetrics records wallet operations to m.
func WithMetrics(m *metrics.Metrics) Option { return func(f *Faucet) { f.m = m } }

// New returns a pointer to a new Faucet service over w.
func New(conf config.FaucetConfig, w wallet.Wallet, log *zap.Logger, opts ...Option) *Faucet {
	f := &Faucet{
		conf:      conf,
		coord:     coordinator.New(w),
		log:       log.Named("faucet"),
		started:   time.Now(),
		acquireTO: opAcquireTimeout,
		beEvery:   backendInterval,
		sc:        make(chan struct{}),
	}

	for _, o := range opts {
		o(f)
	}

	if f.db == nil {
		f.db = memory.New(historySize)
	}

	return f
}

// Coordinator returns the coordinator guarding the faucet wallet.
func (f *Faucet) Coordinator() *coordinator.Coordinator {
	return f.coord
}

// SyncJob returns the background sync job for this faucet's wallet.
func (f *Faucet) SyncJob() *SyncJob {
	return NewSyncJob(f.coord, f.log, f.m)
}

// Uptime returns the time since the faucet was created.
func (f *Faucet) Uptime() time.Duration {
	return time.Since(f.started)
}

// Startup waits for the backend, logs the wallet address, runs an initial sync and logs the balance. Only a
// backend that never becomes ready or a wallet without address are errors: a failed initial sync is left to the
// background job.
func (f *Faucet) Startup(ctx context.Context) error {
	if f.be != nil {
		if err := f.waitBackend(ctx); err != nil {
			return err
		}
	}

	ua, err := coordinator.Query(ctx, f.coord, func(ctx context.Context, w wallet.Wallet) (string, error) {
		return w.UnifiedAddress(ctx)
	})
	if err != nil {
		return fmt.Errorf("wallet address: %w", err)
	}

	f.log.Info("wallet initialized", zap.String("address", ua))

	res, err := coordinator.Mutate(ctx, f.coord, f.acquireTO,
		func(ctx context.Context, w wallet.Wallet) (wallet.SyncResult, error) {
			sctx, cancel := context.WithTimeout(ctx, initialSyncTimeout)
			defer cancel()

			return w.Sync(sctx)
		})
	if err != nil {
		f.log.Warn("initial sync failed, continuing anyway", zap.Error(err))
	} else {
		f.log.Info("initial sync completed", zap.Uint64("height", res.Height))
	}

	bal, err := coordinator.Query(ctx, f.coord, func(ctx context.Context, w wallet.Wallet) (wallet.Balance, error) {
		return w.Balance(ctx)
	})
	if err != nil {
		f.log.Warn("could not read balance", zap.Error(err))

		return nil
	}

	f.m.Balance(bal.Transparent, bal.Sapling, bal.Orchard)

	fields := []zap.Field{zap.String("total", util.ZEC(bal.Total()).String())}
	for _, p := range []struct {
		name string
		v    uint64
	}{{"transparent", bal.Transparent}, {"sapling", bal.Sapling}, {"orchard", bal.Orchard}} {
		if p.v > 0 {
			fields = append(fields, zap.String(p.name, util.ZEC(p.v).String()))
		}
	}

	f.log.Info("initial balance (ZEC)", fields...)

	return nil
}

func (f *Faucet) waitBackend(ctx context.Context) error {
	retries := f.conf.BackendRetries
	if retries <= 0 {
		retries = 1
	}

	var (
		height  uint64
		start   = time.Now()
		lastLog = start
	)

	p := probe.Probe{
		Name:       "backend",
		Interval:   f.beEvery,
		MaxElapsed: time.Duration(retries-1) * f.beEvery,
		Log:        f.log,
		Progress: func(int) {
			if time.Since(lastLog) >= backendLogEvery {
				lastLog = time.Now()
				f.log.Info("still waiting for backend", zap.Duration("elapsed", time.Since(start).Round(time.Second)))
			}
		},
	}

	_, err := p.Wait(ctx, func(ctx context.Context) error {
		h, err := f.be.LatestHeight(ctx)
		if err == nil {
			height = h
		}

		return err
	})
	if err != nil {
		return fmt.Errorf("waiting for backend: %w", err)
	}

	f.log.Info("backend ready", zap.Uint64("height", height), zap.Duration("took", time.Since(start).Round(time.Second)))

	return nil
}

// Stop shuts down the http servers implementing the RESTful API and closes gracefully the connections to message
// broker and database. It is safe to call more than once and from several goroutines.
func (f *Faucet) Stop() {
	f.stopOnce.Do(f.stop)
}

func (f *Faucet) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Second)
	defer cancel()

	f.mu.Lock()
	f.stopped = true
	s, ss := f.s, f.ss
	f.mu.Unlock()

	if s != nil {
		if err := s.Shutdown(ctx); err != nil {
			f.log.Error("http server shutdown", zap.Error(err))
		}
	}

	if ss != nil {
		if err := ss.Shutdown(ctx); err != nil {
			f.log.Error("https server shutdown", zap.Error(err))
		}
	}

	close(f.sc)

	if f.mb != nil {
		if err := f.mb.Close(); err != nil {
			f.log.Error("closing message broker", zap.Error(err))
		}
	}

	if err := db.Close(f.db); err != nil {
		f.log.Error("closing database", zap.Error(err))
	}
}
