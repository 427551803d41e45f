package zebra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHandler answers the node RPC methods used by the services.
func mockHandler(rw http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.WriteHeader(http.StatusBadRequest)

		return
	}

	reply := func(res interface{}) {
		_ = json.NewEncoder(rw).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": res})
	}

	switch req.Method {
	case "getblockcount":
		reply(101)
	case "getinfo":
		reply(map[string]interface{}{"build": "v2.0.0"})
	case "generate":
		n := int(req.Params[0].(float64))
		hashes := make([]string, n)

		for i := range hashes {
			hashes[i] = "00ab"
		}

		reply(hashes)
	case "validateaddress":
		reply(map[string]interface{}{"isvalid": req.Params[0] == "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd"})
	default:
		rw.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(rw).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]interface{}{"code": -32601, "message": "Method not found"},
		})
	}
}

func TestZebra(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	z, err := Init(mock.URL, "", "")
	require.NoError(t, err)
	defer z.Close()

	ctx := context.Background()

	h, err := z.BlockHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), h)

	require.NoError(t, z.Ping(ctx))

	hashes, err := z.Generate(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, hashes, 3)

	ok, err := z.ValidateAddress(ctx, "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = z.ValidateAddress(ctx, "tmNope")
	require.NoError(t, err)
	assert.False(t, ok)

	err = z.Call(ctx, "z_gettreestate", nil)
	require.ErrorIs(t, err, ErrRPC)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestBadResponses(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusServiceUnavailable)
		_, _ = rw.Write([]byte("warming up"))
	}))
	defer mock.Close()

	z, err := Init(mock.URL, "user", "pass")
	require.NoError(t, err)

	_, err = z.BlockHeight(context.Background())
	require.ErrorIs(t, err, ErrResponse)

	mock.Close()

	require.Error(t, z.Ping(context.Background()))
}

func TestInit(t *testing.T) {
	_, err := Init("zebra:8232", "", "")
	require.Error(t, err)

	_, err = Init("http://zebra:8232", "", "")
	require.NoError(t, err)
}
