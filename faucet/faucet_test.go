package faucet

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tarancss/zecdev/devnet/probe"
	"github.com/tarancss/zecdev/lib/config"
	"github.com/tarancss/zecdev/lib/msg/types"
	"github.com/tarancss/zecdev/lib/wallet"
	"github.com/tarancss/zecdev/lib/wallet/wallettest"
)

const (
	testUA    = "uregtest1faucetaddress"
	testTAddr = "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd"
)

var testConf = config.FaucetConfig{DefaultAmount: 10, MinAmount: 1, MaxAmount: 100, BackendRetries: 3}

// fakeBroker records published events.
type fakeBroker struct {
	mu     sync.Mutex
	events []types.Event
}

func (b *fakeBroker) Setup() error { return nil }
func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) SendEvent(e types.Event) error {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()

	return nil
}

func (b *fakeBroker) GetEvents(string) (<-chan types.Event, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}

func (b *fakeBroker) Events() []types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]types.Event(nil), b.events...)
}

// fakeBackend is ready after a number of failed calls.
type fakeBackend struct {
	failures int32
	calls    int32
}

func (b *fakeBackend) LatestHeight(context.Context) (uint64, error) {
	if atomic.AddInt32(&b.calls, 1) <= b.failures {
		return 0, errors.New("connection refused")
	}

	return 120, nil
}

func newFake(bal wallet.Balance) *wallettest.Fake {
	return &wallettest.Fake{Bal: bal, UA: testUA, TAddr: testTAddr, TxID: "txid-1"}
}

func TestStartup(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	w := newFake(wallet.Balance{Transparent: 625_000_000, Orchard: 100_000_000})
	be := &fakeBackend{failures: 2}

	conf := testConf
	conf.BackendRetries = 50

	f := New(conf, w, zap.New(core), WithBackend(be))
	f.beEvery = 10 * time.Millisecond

	require.NoError(t, f.Startup(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&be.calls))
	assert.Equal(t, 1, w.Calls("Sync"))

	assert.Equal(t, 1, logs.FilterMessage("backend ready").Len())
	assert.Equal(t, 1, logs.FilterMessage("wallet initialized").FilterField(zap.String("address", testUA)).Len())
	assert.Equal(t, 1, logs.FilterMessage("initial balance (ZEC)").FilterField(zap.String("total", "7.25")).Len())
}

func TestStartupBackendNotReady(t *testing.T) {
	w := newFake(wallet.Balance{})
	be := &fakeBackend{failures: 100}

	f := New(testConf, w, zaptest.NewLogger(t), WithBackend(be))
	f.beEvery = 5 * time.Millisecond

	err := f.Startup(context.Background())
	require.ErrorIs(t, err, probe.ErrServiceNotReady)
	assert.LessOrEqual(t, atomic.LoadInt32(&be.calls), int32(3))
	assert.Zero(t, w.Calls("Sync"))
}

func TestStartupSyncFails(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	w := newFake(wallet.Balance{})
	w.SyncErr = errors.New("sync exploded")

	f := New(testConf, w, zap.New(core))
	require.NoError(t, f.Startup(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("initial sync failed, continuing anyway").Len())
}

func TestInitStop(t *testing.T) {
	f := New(testConf, newFake(wallet.Balance{}), zaptest.NewLogger(t))

	res := make(chan string, 1)
	go func() { res <- f.Init("127.0.0.1", "0", "", "", "") }()

	time.Sleep(20 * time.Millisecond)

	// concurrent stops close everything once
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			f.Stop()
		}()
	}
	wg.Wait()

	select {
	case out := <-res:
		assert.Equal(t, "shutdown servers: <nil>", out)
	case <-time.After(2 * time.Second):
		t.Fatal("Init did not return after Stop")
	}

	assert.Equal(t, "faucet already stopped", f.Init("127.0.0.1", "0", "", "", ""))
}

func TestInitServerError(t *testing.T) {
	f := New(testConf, newFake(wallet.Balance{}), zaptest.NewLogger(t))
	defer f.Stop()

	res := make(chan string, 1)
	go func() { res <- f.Init("127.0.0.1", "-1", "", "", "") }()

	select {
	case out := <-res:
		assert.Contains(t, out, "http server")
		assert.NotContains(t, out, "<nil>")
	case <-time.After(2 * time.Second):
		t.Fatal("Init did not return on a listen error")
	}
}
