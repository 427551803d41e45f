package faucet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/coordinator"
	"github.com/tarancss/zecdev/lib/util"
)

// History limits for /history.
const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// ErrorResponse is the body replied when a request fails.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// StatsResponse is the body of /stats. Amounts are in ZEC.
type StatsResponse struct {
	CurrentBalance     float64 `json:"current_balance"`
	TransparentBalance float64 `json:"transparent_balance"`
	SaplingBalance     float64 `json:"sapling_balance"`
	OrchardBalance     float64 `json:"orchard_balance"`
	FaucetAddress      string  `json:"faucet_address"`
	TotalRequests      uint64  `json:"total_requests"`
	TotalSent          float64 `json:"total_sent"`
	Uptime             float64 `json:"uptime_seconds"`
}

// HistoryEntry is a transaction in the body of /history.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	ToAddress string    `json:"to_address"`
	Amount    float64   `json:"amount"`
	TxID      string    `json:"txid"`
	Memo      string    `json:"memo,omitempty"`
}

// HistoryResponse is the body of /history.
type HistoryResponse struct {
	Count        int            `json:"count"`
	Transactions []HistoryEntry `json:"transactions"`
}

// AddressResponse is the body of /address.
type AddressResponse struct {
	UnifiedAddress     string `json:"unified_address"`
	TransparentAddress string `json:"transparent_address"`
}

// SyncResponse is the body of /sync.
type SyncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Height  uint64 `json:"height,omitempty"`
}

// ShieldResponse is the body of /shield. Amounts are in ZEC.
type ShieldResponse struct {
	Status            string  `json:"status"`
	TransparentAmount float64 `json:"transparent_amount,omitempty"`
	ShieldedAmount    float64 `json:"shielded_amount,omitempty"`
	Fee               float64 `json:"fee,omitempty"`
	TxID              string  `json:"txid,omitempty"`
	Message           string  `json:"message"`
}

// SendResponse is the body of /send and /request. Amounts are in ZEC.
type SendResponse struct {
	Status         string    `json:"status"`
	TxID           string    `json:"txid"`
	ToAddress      string    `json:"to_address"`
	Amount         float64   `json:"amount"`
	Memo           string    `json:"memo"`
	NewBalance     float64   `json:"new_balance"`
	OrchardBalance float64   `json:"orchard_balance"`
	Timestamp      time.Time `json:"timestamp"`
	Message        string    `json:"message"`
}

// errorStatus maps an error to its http status code and status tag.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, StatusInsufficientFunds
	case errors.Is(err, ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, StatusInsufficientBalance
	case errors.Is(err, coordinator.ErrBusy):
		return http.StatusServiceUnavailable, StatusBusy
	case errors.Is(err, coordinator.ErrOperationTimeout):
		return http.StatusGatewayTimeout, StatusTimeout
	}

	return http.StatusInternalServerError, StatusFailed
}

// reply writes res, or the error body when err is set, and logs the request.
func (f *Faucet) reply(rw http.ResponseWriter, r *http.Request, res interface{}, err error) {
	code := http.StatusOK

	if err != nil {
		var tag string

		code, tag = errorStatus(err)
		res = ErrorResponse{Status: tag, Error: err.Error()}
	}

	fields := []zap.Field{zap.String("remote", r.RemoteAddr), zap.String("uri", r.RequestURI), zap.Int("code", code)}

	switch {
	case code >= http.StatusInternalServerError:
		f.log.Error("httpreq", append(fields, zap.Error(err))...)
	case err != nil:
		f.log.Info("httpreq", append(fields, zap.Error(err))...)
	default:
		f.log.Debug("httpreq", fields...)
	}

	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(code)
	_ = json.NewEncoder(rw).Encode(res)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return nil
}

// homeHandler just replies a welcome message to the client.
func (f *Faucet) homeHandler(rw http.ResponseWriter, r *http.Request) {
	f.reply(rw, r, map[string]interface{}{
		"service": "zecdev faucet",
		"version": Version,
		"endpoints": []string{
			"GET /health", "GET /stats", "GET /history", "POST /request",
			"GET /address", "POST /sync", "POST /shield", "POST /send",
		},
	}, nil)
}

// healthHandler replies the service is healthy while it can serve requests.
func (f *Faucet) healthHandler(rw http.ResponseWriter, r *http.Request) {
	f.reply(rw, r, HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Uptime:    f.Uptime().Seconds(),
		Timestamp: time.Now().UTC(),
	}, nil)
}

func (f *Faucet) statsHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res StatsResponse
	)

	defer func() { f.reply(rw, r, res, err) }()

	st, err := f.Stats(r.Context())
	if err != nil {
		return
	}

	res = StatsResponse{
		CurrentBalance:     util.ZECFloat(st.Balance.Total()),
		TransparentBalance: util.ZECFloat(st.Balance.Transparent),
		SaplingBalance:     util.ZECFloat(st.Balance.Sapling),
		OrchardBalance:     util.ZECFloat(st.Balance.Orchard),
		FaucetAddress:      st.Address,
		TotalRequests:      st.TotalRequests,
		TotalSent:          util.ZECFloat(st.TotalSent),
		Uptime:             st.Uptime.Seconds(),
	}
}

// historyHandler replies the last ?limit= transactions (default 100, at most 1000).
func (f *Faucet) historyHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res = HistoryResponse{Transactions: []HistoryEntry{}}
	)

	defer func() { f.reply(rw, r, res, err) }()

	limit := defaultHistoryLimit

	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit <= 0 {
			err = fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)

			return
		}
	}

	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	txs, err := f.History(r.Context(), limit)
	if err != nil {
		return
	}

	for _, tx := range txs {
		res.Transactions = append(res.Transactions, HistoryEntry{
			Timestamp: tx.Timestamp,
			Kind:      tx.Kind,
			ToAddress: tx.ToAddress,
			Amount:    util.ZECFloat(tx.Amount),
			TxID:      tx.TxID,
			Memo:      tx.Memo,
		})
	}

	res.Count = len(res.Transactions)
}

func (f *Faucet) addressHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res AddressResponse
	)

	defer func() { f.reply(rw, r, res, err) }()

	res.UnifiedAddress, res.TransparentAddress, err = f.Addresses(r.Context())
}

func (f *Faucet) syncHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res SyncResponse
	)

	defer func() { f.reply(rw, r, res, err) }()

	sr, err := f.Sync(r.Context())
	if err != nil {
		return
	}

	res = SyncResponse{Status: StatusSynced, Message: "Wallet synced with blockchain", Height: sr.Height}
}

func (f *Faucet) shieldHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res ShieldResponse
	)

	defer func() { f.reply(rw, r, res, err) }()

	sr, err := f.Shield(r.Context())
	if err != nil {
		return
	}

	if sr.Status == StatusNoFunds {
		res = ShieldResponse{Status: StatusNoFunds, Message: "No transparent funds to shield"}

		return
	}

	msg := fmt.Sprintf("Shielded %s ZEC from transparent to orchard (fee: %s ZEC)",
		util.ZEC(sr.ShieldedAmount), util.ZEC(sr.Fee))

	res = ShieldResponse{
		Status:            sr.Status,
		TransparentAmount: util.ZECFloat(sr.TransparentAmount),
		ShieldedAmount:    util.ZECFloat(sr.ShieldedAmount),
		Fee:               util.ZECFloat(sr.Fee),
		TxID:              sr.TxID,
		Message:           msg,
	}
}

func (f *Faucet) sendHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res SendResponse
		req SendRequest
	)

	defer func() { f.reply(rw, r, res, err) }()

	if err = decode(r, &req); err != nil {
		return
	}

	sr, err := f.Send(r.Context(), req)
	if err != nil {
		return
	}

	res = sendResponse(sr, "Sent %s ZEC from orchard pool")
}

// requestHandler serves a faucet drip.
func (f *Faucet) requestHandler(rw http.ResponseWriter, r *http.Request) {
	var (
		err error
		res SendResponse
		req DripRequest
	)

	defer func() { f.reply(rw, r, res, err) }()

	if err = decode(r, &req); err != nil {
		return
	}

	sr, err := f.Request(r.Context(), req)
	if err != nil {
		return
	}

	res = sendResponse(sr, "Faucet sent %s ZEC")
}

func sendResponse(sr SendResult, format string) SendResponse {
	return SendResponse{
		Status:         sr.Status,
		TxID:           sr.TxID,
		ToAddress:      sr.ToAddress,
		Amount:         util.ZECFloat(sr.Amount),
		Memo:           sr.Memo,
		NewBalance:     util.ZECFloat(sr.Balance.Total()),
		OrchardBalance: util.ZECFloat(sr.Balance.Orchard),
		Timestamp:      sr.Timestamp,
		Message:        fmt.Sprintf(format, util.ZEC(sr.Amount)),
	}
}
