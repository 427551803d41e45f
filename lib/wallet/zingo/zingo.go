// Package zingo implements the wallet interface on top of zingo-cli. Each call starts one zingo-cli session, writes
// the commands to its stdin followed by quit and scans the output for the JSON replies.
package zingo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/wallet"
)

// Config selects the zingo-cli binary and the wallet it opens.
type Config struct {
	Binary  string   // zingo-cli path
	Prefix  []string // optional launcher, ie. docker exec -i <container>
	DataDir string
	Server  string // indexing backend URI
	Chain   string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}

		return out, fmt.Errorf("%s: %w: %s", binary, err, strings.TrimSpace(stderr.String()))
	}

	return out, nil
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(e Executor) Option {
	return func(c *Client) {
		if e != nil {
			c.exec = e
		}
	}
}

// Client drives zingo-cli.
type Client struct {
	cfg  Config
	exec Executor
	log  *zap.Logger
}

// Errors returned.
var (
	ErrNoBinary = errors.New("zingo-cli binary required")
	ErrNoReply  = errors.New("no JSON reply in zingo-cli output")
	ErrCommand  = errors.New("zingo-cli command failed")
)

// New returns a zingo-cli client.
func New(cfg Config, log *zap.Logger, opts ...Option) (*Client, error) {
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	if cfg.Binary == "" {
		return nil, ErrNoBinary
	}

	if cfg.Chain == "" {
		cfg.Chain = "regtest"
	}

	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{cfg: cfg, exec: commandExecutor{}, log: log.Named("zingo")}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

var _ wallet.Wallet = (*Client)(nil)

// run starts a zingo-cli session, feeds it cmds and returns every JSON value found in its output.
func (c *Client) run(ctx context.Context, nosync bool, cmds ...string) ([]json.RawMessage, error) {
	binary := c.cfg.Binary
	args := []string{}

	if len(c.cfg.Prefix) > 0 {
		binary = c.cfg.Prefix[0]
		args = append(args, c.cfg.Prefix[1:]...)
		args = append(args, c.cfg.Binary)
	}

	if c.cfg.DataDir != "" {
		args = append(args, "--data-dir", c.cfg.DataDir)
	}

	if c.cfg.Server != "" {
		args = append(args, "--server", c.cfg.Server)
	}

	args = append(args, "--chain", c.cfg.Chain)

	if nosync {
		args = append(args, "--nosync")
	}

	stdin := strings.Join(cmds, "\n") + "\nquit\n"

	c.log.Debug("running zingo-cli", zap.Strings("cmds", cmds))

	out, err := c.exec.Run(ctx, binary, args, stdin)
	if err != nil {
		return nil, fmt.Errorf("zingo-cli %s: %w", cmds[0], err)
	}

	vals := jsonValues(out)
	for _, v := range vals {
		if msg := replyError(v); msg != "" {
			return vals, fmt.Errorf("%w: %s: %s", ErrCommand, cmds[0], msg)
		}
	}

	return vals, nil
}

// jsonValues returns every JSON object or array embedded in out, skipping prompts and free text.
func jsonValues(out []byte) []json.RawMessage {
	var vals []json.RawMessage

	for i := 0; i < len(out); {
		j := bytes.IndexAny(out[i:], "{[")
		if j < 0 {
			break
		}

		start := i + j
		dec := json.NewDecoder(bytes.NewReader(out[start:]))

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			i = start + 1

			continue
		}

		vals = append(vals, raw)
		i = start + int(dec.InputOffset())
	}

	return vals
}

// replyError returns the error message of a zingo-cli reply, if any.
func replyError(v json.RawMessage) string {
	var r struct {
		Error any `json:"error"`
	}

	if json.Unmarshal(v, &r) != nil || r.Error == nil {
		return ""
	}

	if s, ok := r.Error.(string); ok {
		return s
	}

	return fmt.Sprint(r.Error)
}

// Sync syncs the wallet with the indexing backend.
func (c *Client) Sync(ctx context.Context) (wallet.SyncResult, error) {
	vals, err := c.run(ctx, false, "sync")
	if err != nil {
		return wallet.SyncResult{}, err
	}

	var res wallet.SyncResult

	for _, v := range vals {
		var r struct {
			LatestBlock *uint64 `json:"latest_block"`
			Height      *uint64 `json:"sync_height"`
		}
		if json.Unmarshal(v, &r) != nil {
			continue
		}

		res.Height = first(res.Height, r.LatestBlock, r.Height)
		res.Output = string(v)
	}

	return res, nil
}

// balanceReply covers both the legacy and the confirmed_* balance keys.
type balanceReply struct {
	Transparent          *uint64 `json:"transparent_balance"`
	ConfirmedTransparent *uint64 `json:"confirmed_transparent_balance"`
	Sapling              *uint64 `json:"sapling_balance"`
	ConfirmedSapling     *uint64 `json:"confirmed_sapling_balance"`
	Orchard              *uint64 `json:"orchard_balance"`
	ConfirmedOrchard     *uint64 `json:"confirmed_orchard_balance"`
}

// Balance returns the balance per pool in zatoshis.
func (c *Client) Balance(ctx context.Context) (wallet.Balance, error) {
	vals, err := c.run(ctx, true, "balance")
	if err != nil {
		return wallet.Balance{}, err
	}

	for _, v := range vals {
		var r balanceReply
		if json.Unmarshal(v, &r) != nil {
			continue
		}

		if r.Transparent == nil && r.ConfirmedTransparent == nil && r.Orchard == nil && r.ConfirmedOrchard == nil {
			continue
		}

		return wallet.Balance{
			Transparent: first(0, r.Transparent, r.ConfirmedTransparent),
			Sapling:     first(0, r.Sapling, r.ConfirmedSapling),
			Orchard:     first(0, r.Orchard, r.ConfirmedOrchard),
		}, nil
	}

	return wallet.Balance{}, fmt.Errorf("balance: %w", ErrNoReply)
}

// first returns the first non nil value or def.
func first(def uint64, ps ...*uint64) uint64 {
	for _, p := range ps {
		if p != nil {
			return *p
		}
	}

	return def
}

type addressReply struct {
	Address   string         `json:"address"`
	Receivers map[string]any `json:"receivers"`
}

func (c *Client) addresses(ctx context.Context) ([]addressReply, error) {
	vals, err := c.run(ctx, true, "addresses")
	if err != nil {
		return nil, err
	}

	for _, v := range vals {
		var as []addressReply
		if json.Unmarshal(v, &as) == nil && len(as) > 0 {
			return as, nil
		}
	}

	return nil, fmt.Errorf("addresses: %w", ErrNoReply)
}

// UnifiedAddress returns the first unified address of the wallet.
func (c *Client) UnifiedAddress(ctx context.Context) (string, error) {
	as, err := c.addresses(ctx)
	if err != nil {
		return "", err
	}

	for _, a := range as {
		if strings.HasPrefix(a.Address, "u") {
			return a.Address, nil
		}
	}

	return "", fmt.Errorf("unified: %w", wallet.ErrNoAddress)
}

// TransparentAddress returns the first transparent address of the wallet.
func (c *Client) TransparentAddress(ctx context.Context) (string, error) {
	vals, err := c.run(ctx, true, "t_addresses")
	if err == nil {
		for _, v := range vals {
			var as []addressReply
			if json.Unmarshal(v, &as) == nil && len(as) > 0 && strings.HasPrefix(as[0].Address, "t") {
				return as[0].Address, nil
			}

			var ss []string
			if json.Unmarshal(v, &ss) == nil && len(ss) > 0 && strings.HasPrefix(ss[0], "t") {
				return ss[0], nil
			}
		}
	}

	// older releases only list receivers of the unified address
	as, errUA := c.addresses(ctx)
	if errUA != nil {
		if err != nil {
			return "", err
		}

		return "", errUA
	}

	for _, a := range as {
		if t, ok := a.Receivers["transparent"].(string); ok && t != "" {
			return t, nil
		}
	}

	return "", fmt.Errorf("transparent: %w", wallet.ErrNoAddress)
}

// ShieldToPool shields all transparent funds to orchard.
func (c *Client) ShieldToPool(ctx context.Context) (string, error) {
	vals, err := c.run(ctx, true, "shield", "confirm")
	if err != nil {
		return "", fmt.Errorf("%w: %w", wallet.ErrTransactionFailed, err)
	}

	return txid(vals)
}

// Send sends amount zatoshis to address from the orchard pool.
func (c *Client) Send(ctx context.Context, address string, amount uint64, memo string) (string, error) {
	if address == "" || strings.ContainsAny(address, " \t\r\n\"") {
		return "", fmt.Errorf("%w: bad address %q", wallet.ErrTransactionFailed, address)
	}

	cmd := "send " + address + " " + strconv.FormatUint(amount, 10)
	if memo = sanitizeMemo(memo); memo != "" {
		cmd += ` "` + memo + `"`
	}

	vals, err := c.run(ctx, true, cmd, "confirm")
	if err != nil {
		return "", fmt.Errorf("%w: %w", wallet.ErrTransactionFailed, err)
	}

	return txid(vals)
}

// sanitizeMemo keeps the memo on a single line without quotes, so it cannot end the command early.
func sanitizeMemo(memo string) string {
	return strings.TrimSpace(strings.NewReplacer("\n", " ", "\r", " ", `"`, "'").Replace(memo))
}

// txid returns the last transaction id found in the replies.
func txid(vals []json.RawMessage) (string, error) {
	id := ""

	for _, v := range vals {
		var r struct {
			TxID  string   `json:"txid"`
			TxIDs []string `json:"txids"`
		}
		if json.Unmarshal(v, &r) != nil {
			continue
		}

		if r.TxID != "" {
			id = r.TxID
		}

		if len(r.TxIDs) > 0 {
			id = r.TxIDs[0]
		}
	}

	if id == "" {
		return "", fmt.Errorf("%w: no txid returned", wallet.ErrTransactionFailed)
	}

	return id, nil
}
