package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tarancss/zecdev/faucet"
	"github.com/tarancss/zecdev/lib/config"
	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/wallet"
	"github.com/tarancss/zecdev/lib/wallet/wallettest"
)

func TestClient(t *testing.T) {
	w := &wallettest.Fake{
		Bal:   wallet.Balance{Transparent: 1_000_000, Orchard: 20_000_000},
		UA:    "uregtest1abc",
		TAddr: "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd",
		TxID:  "txid-2",
	}
	f := faucet.New(config.FaucetConfig{DefaultAmount: 10, MinAmount: 1, MaxAmount: 100}, w, zaptest.NewLogger(t))

	srv := httptest.NewServer(f.Router())
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)

	a, err := c.Address(ctx)
	require.NoError(t, err)
	assert.Equal(t, "uregtest1abc", a.UnifiedAddress)
	assert.Equal(t, "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd", a.TransparentAddress)

	sy, err := c.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, faucet.StatusSynced, sy.Status)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.21, st.CurrentBalance, 1e-9)

	sh, err := c.Shield(ctx)
	require.NoError(t, err)
	assert.Equal(t, faucet.StatusShielded, sh.Status)
	assert.Equal(t, "txid-2", sh.TxID)

	sent, err := c.Send(ctx, a.UnifiedAddress, decimal.RequireFromString("0.05"), "smoke")
	require.NoError(t, err)
	assert.Equal(t, faucet.StatusSent, sent.Status)
	assert.InDelta(t, 0.05, sent.Amount, 1e-9)

	_, err = c.Send(ctx, a.UnifiedAddress, decimal.NewFromInt(5), "")
	require.ErrorIs(t, err, faucet.ErrInsufficientBalance)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Code)
}

func TestClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sync":
			rw.WriteHeader(http.StatusServiceUnavailable)
			_, _ = rw.Write([]byte(`{"status":"busy","error":"wallet busy"}`))
		case "/shield":
			rw.WriteHeader(http.StatusBadGateway)
			_, _ = rw.Write([]byte("upstream down"))
		case "/health":
			_, _ = rw.Write([]byte("not json"))
		case "/address":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.Sync(ctx)
	assert.ErrorIs(t, err, coordinator.ErrBusy)

	_, err = c.Shield(ctx)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)

	_, err = c.Health(ctx)
	assert.ErrorIs(t, err, ErrResponse)

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	_, err = c.Address(tctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
