// Package zebra implements the node interface for a Zcash node (zebrad or zcashd) through its JSON-RPC endpoint.
package zebra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

// Zebra implements a connection to a Zcash node.
type Zebra struct {
	url        string
	user, pass string
	c          *http.Client
	id         atomic.Uint64
}

// Errors returned.
var (
	ErrRPC      = errors.New("node rpc error")
	ErrResponse = errors.New("unexpected node response")
)

// RPCError is the error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrRPC, e.Code, e.Message)
}

func (e *RPCError) Unwrap() error {
	return ErrRPC
}

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// clientTimeout bounds calls whose context carries no deadline.
const clientTimeout = 30 * time.Second

// Init returns a client for the node at node. user and pass are only used when the node requires Basic
// Authentication.
func Init(node, user, pass string) (*Zebra, error) {
	u, err := url.Parse(node)
	if err != nil {
		return nil, fmt.Errorf("bad node url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("bad node url %q: scheme must be http or https", node)
	}

	return &Zebra{url: node, user: user, pass: pass, c: &http.Client{Timeout: clientTimeout}}, nil
}

// Close ends the connection.
func (z *Zebra) Close() {
	z.c.CloseIdleConnections()
}

// Call sends a JSON-RPC request and decodes its result into res, if not nil.
func (z *Zebra) Call(ctx context.Context, method string, res interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	body, err := json.Marshal(request{JSONRPC: "2.0", ID: z.id.Add(1), Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if z.user != "" {
		req.SetBasicAuth(z.user, z.pass)
	}

	resp, err := z.c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", method, err)
	}

	// nodes answer rpc errors with a json body and a non 200 status, so decode first
	var r response
	if err = json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("%w: %s: status %d: %s", ErrResponse, method, resp.StatusCode, bytes.TrimSpace(raw))
	}

	if r.Error != nil {
		return fmt.Errorf("%s: %w", method, r.Error)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d", ErrResponse, method, resp.StatusCode)
	}

	if res != nil {
		if err = json.Unmarshal(r.Result, res); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrResponse, method, err)
		}
	}

	return nil
}

// BlockHeight returns the height of the best chain.
func (z *Zebra) BlockHeight(ctx context.Context) (h uint64, err error) {
	err = z.Call(ctx, "getblockcount", &h)

	return
}

// Generate asks the node to mine n blocks and returns their hashes.
func (z *Zebra) Generate(ctx context.Context, n int) (hashes []string, err error) {
	err = z.Call(ctx, "generate", &hashes, n)

	return
}

// Ping checks the node answers RPC calls.
func (z *Zebra) Ping(ctx context.Context) error {
	return z.Call(ctx, "getinfo", nil)
}

// ValidateAddress asks the node whether address is valid on its network.
func (z *Zebra) ValidateAddress(ctx context.Context, address string) (bool, error) {
	var r struct {
		IsValid bool `json:"isvalid"`
	}

	if err := z.Call(ctx, "validateaddress", &r, address); err != nil {
		return false, err
	}

	return r.IsValid, nil
}
