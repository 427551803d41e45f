// Package client implements a client of the faucet RESTful API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tarancss/zecdev/faucet"
	"github.com/tarancss/zecdev/lib/coordinator"
)

// ErrResponse is returned when the faucet replies with an unexpected body.
var ErrResponse = errors.New("unexpected faucet response")

// APIError is a non 2xx reply of the faucet.
type APIError struct {
	Code    int
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("faucet replied %d %s: %s", e.Code, e.Status, e.Message)
}

// Is maps the reply back to the faucet and coordinator errors.
func (e *APIError) Is(target error) bool {
	switch e.Status {
	case faucet.StatusBusy:
		return target == coordinator.ErrBusy
	case faucet.StatusTimeout:
		return target == coordinator.ErrOperationTimeout
	case faucet.StatusInsufficientFunds:
		return target == faucet.ErrInsufficientFunds
	case faucet.StatusInsufficientBalance:
		return target == faucet.ErrInsufficientBalance
	case faucet.StatusBadRequest:
		return target == faucet.ErrBadRequest
	}

	return false
}

// Client calls the faucet API at a base url.
type Client struct {
	base string
	hc   *http.Client
}

// New returns a client for the faucet at baseURL. A nil hc uses http.DefaultClient.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}

	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

// URL returns the faucet base url.
func (c *Client) URL() string {
	return c.base
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		var e faucet.ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Status == "" {
			e = faucet.ErrorResponse{Status: http.StatusText(res.StatusCode), Error: strings.TrimSpace(string(data))}
		}

		return &APIError{Code: res.StatusCode, Status: e.Status, Message: e.Error}
	}

	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrResponse, method, path, err)
	}

	return nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (res faucet.HealthResponse, err error) {
	err = c.do(ctx, http.MethodGet, "/health", nil, &res)

	return
}

// Address calls GET /address.
func (c *Client) Address(ctx context.Context) (res faucet.AddressResponse, err error) {
	err = c.do(ctx, http.MethodGet, "/address", nil, &res)

	return
}

// Stats calls GET /stats.
func (c *Client) Stats(ctx context.Context) (res faucet.StatsResponse, err error) {
	err = c.do(ctx, http.MethodGet, "/stats", nil, &res)

	return
}

// Sync calls POST /sync.
func (c *Client) Sync(ctx context.Context) (res faucet.SyncResponse, err error) {
	if err = c.do(ctx, http.MethodPost, "/sync", nil, &res); err == nil && res.Status != faucet.StatusSynced {
		err = fmt.Errorf("%w: sync status %q", ErrResponse, res.Status)
	}

	return
}

// Shield calls POST /shield.
func (c *Client) Shield(ctx context.Context) (res faucet.ShieldResponse, err error) {
	err = c.do(ctx, http.MethodPost, "/shield", nil, &res)

	return
}

// Send calls POST /send.
func (c *Client) Send(
	ctx context.Context, address string, amount decimal.Decimal, memo string,
) (res faucet.SendResponse, err error) {
	err = c.do(ctx, http.MethodPost, "/send", faucet.SendRequest{Address: address, Amount: amount, Memo: memo}, &res)

	return
}
