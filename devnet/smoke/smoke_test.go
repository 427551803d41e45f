package smoke

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tarancss/zecdev/faucet"
	"github.com/tarancss/zecdev/lib/block/blocktest"
)

var errRefused = errors.New("connection refused")

// fakeFaucet returns stats in sequence, repeating the last one.
type fakeFaucet struct {
	err    error
	stats  []faucet.StatsResponse
	shield faucet.ShieldResponse
	sent   faucet.SendResponse

	shields int
	sends   []decimal.Decimal
	to      string
}

func (f *fakeFaucet) Health(context.Context) (faucet.HealthResponse, error) {
	return faucet.HealthResponse{Status: "healthy", Version: faucet.Version}, f.err
}

func (f *fakeFaucet) Address(context.Context) (faucet.AddressResponse, error) {
	return faucet.AddressResponse{UnifiedAddress: "uregtest1faucetaddressforsmoke", TransparentAddress: "tmFaucet"}, f.err
}

func (f *fakeFaucet) Sync(context.Context) (faucet.SyncResponse, error) {
	return faucet.SyncResponse{Status: faucet.StatusSynced, Message: "wallet synced"}, f.err
}

func (f *fakeFaucet) Stats(context.Context) (faucet.StatsResponse, error) {
	if f.err != nil {
		return faucet.StatsResponse{}, f.err
	}

	st := f.stats[0]
	if len(f.stats) > 1 {
		f.stats = f.stats[1:]
	}

	return st, nil
}

func (f *fakeFaucet) Shield(context.Context) (faucet.ShieldResponse, error) {
	f.shields++

	return f.shield, f.err
}

func (f *fakeFaucet) Send(_ context.Context, to string, amount decimal.Decimal, _ string) (faucet.SendResponse, error) {
	f.sends = append(f.sends, amount)
	f.to = to

	return f.sent, f.err
}

func newSuite(t *testing.T, node *blocktest.Fake, f *fakeFaucet) *Suite {
	t.Helper()

	s := New(node, f, zaptest.NewLogger(t))
	s.ConfirmWait, s.SettleWait = 0, 0

	return s
}

func TestRunAllPass(t *testing.T) {
	f := &fakeFaucet{
		stats: []faucet.StatsResponse{
			{TransparentBalance: 6.25},
			{OrchardBalance: 6.2499},
			{OrchardBalance: 6.2499},
		},
		shield: faucet.ShieldResponse{Status: faucet.StatusShielded, ShieldedAmount: 6.2499, TxID: "txid-shield"},
		sent:   faucet.SendResponse{Status: faucet.StatusSent, TxID: "txid-send", OrchardBalance: 6.1998},
	}

	res := newSuite(t, &blocktest.Fake{Height: 230}, f).Run(context.Background())
	require.Len(t, res, 6)
	assert.Zero(t, Failed(res))

	for _, r := range res {
		assert.False(t, r.Skipped, r.Name)
	}

	assert.Equal(t, "block height 230", res[0].Detail)
	assert.Contains(t, res[4].Detail, "shielded 6.24990000 ZEC")
	assert.Equal(t, 1, f.shields)
	require.Len(t, f.sends, 1)
	assert.True(t, decimal.RequireFromString("0.05").Equal(f.sends[0]))
	assert.Equal(t, "uregtest1faucetaddressforsmoke", f.to)

	var buf bytes.Buffer
	Print(&buf, res)
	assert.Contains(t, buf.String(), "Shielded send (E2E)")
	assert.Contains(t, buf.String(), "passed: 6, failed: 0")
}

func TestShieldCases(t *testing.T) {
	tests := []struct {
		name    string
		stats   faucet.StatsResponse
		shield  faucet.ShieldResponse
		skipped bool
		shields int
		detail  string
	}{
		{
			name:    "no funds status",
			stats:   faucet.StatsResponse{TransparentBalance: 1},
			shield:  faucet.ShieldResponse{Status: faucet.StatusNoFunds, Message: "nothing to shield"},
			shields: 1,
			detail:  "shield status no_funds",
		},
		{name: "already shielded", stats: faucet.StatsResponse{OrchardBalance: 0.002}, detail: "already shielded"},
		{name: "too small", stats: faucet.StatsResponse{TransparentBalance: 0.0001}, skipped: true, detail: "too small"},
		{name: "empty", skipped: true, detail: "no balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFaucet{stats: []faucet.StatsResponse{tt.stats}, shield: tt.shield}
			s := newSuite(t, &blocktest.Fake{}, f)

			detail, skipped, err := s.shield(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.skipped, skipped)
			assert.Contains(t, detail, tt.detail)
			assert.Equal(t, tt.shields, f.shields)
		})
	}
}

func TestSendSkipAndFail(t *testing.T) {
	f := &fakeFaucet{stats: []faucet.StatsResponse{{OrchardBalance: 0.05}}}
	s := newSuite(t, &blocktest.Fake{}, f)

	detail, skipped, err := s.send(context.Background())
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Contains(t, detail, "need at least 0.1")
	assert.Empty(t, f.sends)

	f = &fakeFaucet{
		stats: []faucet.StatsResponse{{OrchardBalance: 1}},
		sent:  faucet.SendResponse{Status: faucet.StatusFailed, Message: "broadcast failed"},
	}
	s = newSuite(t, &blocktest.Fake{}, f)

	_, _, err = s.send(context.Background())
	require.ErrorIs(t, err, errUnexpected)
	assert.Contains(t, err.Error(), "broadcast failed")
}

func TestRunFailures(t *testing.T) {
	f := &fakeFaucet{err: errRefused, stats: []faucet.StatsResponse{{}}}

	res := newSuite(t, &blocktest.Fake{HeightErr: errRefused}, f).Run(context.Background())
	require.Len(t, res, 6)
	assert.Equal(t, 6, Failed(res))
	assert.Equal(t, errRefused.Error(), res[0].Detail)

	var buf bytes.Buffer
	Print(&buf, res)
	assert.Contains(t, buf.String(), "FAIL")
	assert.Contains(t, buf.String(), "passed: 0, failed: 6")
}
