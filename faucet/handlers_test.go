package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/wallet"
)

func do(t *testing.T, method, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var rd *bytes.Reader

	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)

		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	out := map[string]interface{}{}
	if res.StatusCode != http.StatusMethodNotAllowed {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	}

	return res.StatusCode, out
}

func TestAPI(t *testing.T) {
	w := newFake(wallet.Balance{Transparent: 5000, Orchard: 1_000_000})
	f := New(testConf, w, zaptest.NewLogger(t))

	srv := httptest.NewServer(f.Router())
	defer srv.Close()

	cases := []struct {
		name, method, uri string      // case name, http method to use and uri
		obj               interface{} // object for POST
		status            int         // http status code
		exp               map[string]interface{}
	}{
		{"home", http.MethodGet, "/", nil, http.StatusOK, map[string]interface{}{"service": "zecdev faucet"}},
		{"homePost", http.MethodPost, "/", nil, http.StatusOK, map[string]interface{}{"version": Version}},
		{"health", http.MethodGet, "/health", nil, http.StatusOK, map[string]interface{}{"status": "healthy"}},
		{"healthPost", http.MethodPost, "/health", nil, http.StatusMethodNotAllowed, nil},
		{"address", http.MethodGet, "/address", nil, http.StatusOK,
			map[string]interface{}{"unified_address": testUA, "transparent_address": testTAddr}},
		{"stats", http.MethodGet, "/stats", nil, http.StatusOK, map[string]interface{}{
			"current_balance": 0.01005, "transparent_balance": 0.00005, "orchard_balance": 0.01,
			"faucet_address": testUA, "total_requests": 0.0,
		}},
		{"sync", http.MethodPost, "/sync", nil, http.StatusOK, map[string]interface{}{"status": StatusSynced}},
		{"shieldTooSmall", http.MethodPost, "/shield", nil, http.StatusUnprocessableEntity,
			map[string]interface{}{"status": StatusInsufficientFunds}},
		{"sendBadJSON", http.MethodPost, "/send", "{", http.StatusBadRequest,
			map[string]interface{}{"status": StatusBadRequest}},
		{"sendBadAmount", http.MethodPost, "/send", map[string]interface{}{"address": testUA, "amount": 0}, http.StatusBadRequest,
			map[string]interface{}{"status": StatusBadRequest}},
		{"sendInsufficient", http.MethodPost, "/send", map[string]interface{}{"address": testUA, "amount": 0.05},
			http.StatusUnprocessableEntity, map[string]interface{}{"status": StatusInsufficientBalance}},
		{"send", http.MethodPost, "/send", map[string]interface{}{"address": testUA, "amount": 0.001, "memo": "test"},
			http.StatusOK, map[string]interface{}{"status": StatusSent, "txid": "txid-1", "amount": 0.001, "memo": "test"}},
		{"requestBadAddress", http.MethodPost, "/request", map[string]interface{}{"address": "t1xyz"}, http.StatusBadRequest,
			map[string]interface{}{"status": StatusBadRequest}},
		{"historyBadLimit", http.MethodGet, "/history?limit=x", nil, http.StatusBadRequest,
			map[string]interface{}{"status": StatusBadRequest}},
		{"history", http.MethodGet, "/history?limit=5000", nil, http.StatusOK, map[string]interface{}{"count": 1.0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, tc.method, srv.URL+tc.uri, tc.obj)
			assert.Equal(t, tc.status, status)

			for k, v := range tc.exp {
				if fv, ok := v.(float64); ok {
					assert.InDelta(t, fv, body[k], 1e-9, k)

					continue
				}

				assert.Equal(t, v, body[k], k)
			}

			if status >= http.StatusBadRequest && status != http.StatusMethodNotAllowed {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestAPIShield(t *testing.T) {
	w := newFake(wallet.Balance{Transparent: 1_000_000})
	f := New(testConf, w, zaptest.NewLogger(t))

	srv := httptest.NewServer(f.Router())
	defer srv.Close()

	status, body := do(t, http.MethodPost, srv.URL+"/shield", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, StatusShielded, body["status"])
	assert.InDelta(t, 0.0099, body["shielded_amount"], 1e-9)
	assert.InDelta(t, 0.0001, body["fee"], 1e-9)

	w.SetBalance(wallet.Balance{})

	status, body = do(t, http.MethodPost, srv.URL+"/shield", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, StatusNoFunds, body["status"])
}

func TestAPIBusyAndFailures(t *testing.T) {
	w := newFake(wallet.Balance{Orchard: 100_000_000})
	f := New(testConf, w, zaptest.NewLogger(t))
	f.acquireTO = 10 * time.Millisecond

	srv := httptest.NewServer(f.Router())
	defer srv.Close()

	release := holdWallet(t, f.Coordinator())

	status, body := do(t, http.MethodPost, srv.URL+"/sync", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, StatusBusy, body["status"])

	release()

	w.SendErr = wallet.ErrTransactionFailed

	status, body = do(t, http.MethodPost, srv.URL+"/send", map[string]interface{}{"address": testUA, "amount": 1})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, StatusFailed, body["status"])
	assert.Contains(t, body["error"], "transaction failed")

	w.SendErr = nil
	w.SyncDelay = time.Second

	// a client that gives up turns the sync into an operation timeout
	f.acquireTO = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Sync(ctx)
	code, tag := errorStatus(err)
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, StatusTimeout, tag)
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		tag  string
	}{
		{fmt.Errorf("%w: x", ErrInvalidAddress), http.StatusBadRequest, StatusBadRequest},
		{ErrInvalidAmount, http.StatusBadRequest, StatusBadRequest},
		{&InsufficientBalanceError{Need: 2, Have: 1}, http.StatusUnprocessableEntity, StatusInsufficientBalance},
		{ErrInsufficientFunds, http.StatusUnprocessableEntity, StatusInsufficientFunds},
		{coordinator.ErrBusy, http.StatusServiceUnavailable, StatusBusy},
		{fmt.Errorf("%w: %w", coordinator.ErrOperationTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout, StatusTimeout},
		{wallet.ErrTransactionFailed, http.StatusInternalServerError, StatusFailed},
	}

	for _, tc := range cases {
		code, tag := errorStatus(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.tag, tag, tc.err.Error())
	}
}
