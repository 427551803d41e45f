// Package smoke checks a running devnet end to end: node RPC, faucet API, wallet sync, shielding and a shielded
// send.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/devnet"
	"github.com/tarancss/zecdev/faucet"
	"github.com/tarancss/zecdev/lib/block"
	"github.com/tarancss/zecdev/lib/table"
)

// Thresholds in ZEC.
const (
	MinShield  = 0.0002 // fee plus some change
	MinOrchard = 0.001
	MinSend    = 0.1
)

// SendAmount is sent by the shielded send check to the faucet's own address.
var SendAmount = decimal.New(5, -2) //nolint:gochecknoglobals,gomnd // 0.05 ZEC

const sendMemo = "zecdev smoke test - shielded send"

var errUnexpected = errors.New("unexpected response")

// Faucet is the faucet API used by the checks.
type Faucet interface {
	devnet.FaucetAPI
	Send(ctx context.Context, address string, amount decimal.Decimal, memo string) (faucet.SendResponse, error)
}

// Result is the outcome of a check. A skipped check counts as passed.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
	Elapsed time.Duration
}

// Suite runs the checks against a node and a faucet.
type Suite struct {
	Node   block.Node
	Faucet Faucet
	// ConfirmWait is the wait after a shield before re-reading the balance; SettleWait follows the sync.
	ConfirmWait time.Duration
	SettleWait  time.Duration
	Log         *zap.Logger
}

// New returns a suite with the default waits.
func New(node block.Node, f Faucet, log *zap.Logger) *Suite {
	return &Suite{Node: node, Faucet: f, ConfirmWait: 30 * time.Second, SettleWait: 5 * time.Second, Log: log}
}

type check struct {
	name string
	run  func(ctx context.Context) (detail string, skipped bool, err error)
}

// Run runs every check in order. A failing check does not stop the run.
func (s *Suite) Run(ctx context.Context) []Result {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	checks := []check{
		{"Node RPC connectivity", s.nodeRPC},
		{"Faucet health check", s.health},
		{"Faucet address retrieval", s.address},
		{"Wallet sync capability", s.sync},
		{"Wallet balance and shield", s.shield},
		{"Shielded send (E2E)", s.send},
	}

	res := make([]Result, 0, len(checks))

	for i, c := range checks {
		start := time.Now()
		detail, skipped, err := c.run(ctx)

		r := Result{Name: c.name, Passed: err == nil, Skipped: skipped, Detail: detail, Elapsed: time.Since(start)}
		if err != nil {
			r.Detail = err.Error()
		}

		s.Log.Info("smoke check", zap.Int("check", i+1), zap.String("name", c.name), zap.Bool("passed", r.Passed),
			zap.Bool("skipped", skipped), zap.String("detail", r.Detail))

		res = append(res, r)
	}

	return res
}

func (s *Suite) nodeRPC(ctx context.Context) (string, bool, error) {
	h, err := s.Node.BlockHeight(ctx)
	if err != nil {
		return "", false, err
	}

	return fmt.Sprintf("block height %d", h), false, nil
}

func (s *Suite) health(ctx context.Context) (string, bool, error) {
	h, err := s.Faucet.Health(ctx)
	if err != nil {
		return "", false, err
	}

	if h.Status != "healthy" {
		return "", false, fmt.Errorf("%w: status %q", errUnexpected, h.Status)
	}

	return fmt.Sprintf("version %s, up %.0fs", h.Version, h.Uptime), false, nil
}

func (s *Suite) address(ctx context.Context) (string, bool, error) {
	a, err := s.Faucet.Address(ctx)
	if err != nil {
		return "", false, err
	}

	if a.UnifiedAddress == "" || a.TransparentAddress == "" {
		return "", false, fmt.Errorf("%w: missing address", errUnexpected)
	}

	return fmt.Sprintf("%s, %s", short(a.UnifiedAddress), a.TransparentAddress), false, nil
}

func (s *Suite) sync(ctx context.Context) (string, bool, error) {
	r, err := s.Faucet.Sync(ctx)
	if err != nil {
		return "", false, err
	}

	if r.Status != faucet.StatusSynced {
		return "", false, fmt.Errorf("%w: sync status %q", errUnexpected, r.Status)
	}

	return r.Message, false, nil
}

func (s *Suite) shield(ctx context.Context) (string, bool, error) {
	before, err := s.Faucet.Stats(ctx)
	if err != nil {
		return "", false, fmt.Errorf("get balance: %w", err)
	}

	switch {
	case before.TransparentBalance >= MinShield:
		r, err := s.Faucet.Shield(ctx)
		if err != nil {
			return "", false, fmt.Errorf("shield: %w", err)
		}

		if r.Status != faucet.StatusShielded {
			return fmt.Sprintf("shield status %s: %s", r.Status, r.Message), false, nil
		}

		if err = sleep(ctx, s.ConfirmWait); err != nil {
			return "", false, err
		}

		_, _ = s.Faucet.Sync(ctx)

		if err = sleep(ctx, s.SettleWait); err != nil {
			return "", false, err
		}

		after, err := s.Faucet.Stats(ctx)
		if err != nil {
			return "", false, fmt.Errorf("get balance: %w", err)
		}

		if after.OrchardBalance > before.OrchardBalance || after.TransparentBalance < before.TransparentBalance {
			return fmt.Sprintf("shielded %.8f ZEC, orchard %.8f ZEC", r.ShieldedAmount, after.OrchardBalance), false, nil
		}

		return fmt.Sprintf("shield %s sent, balance not updated yet", short(r.TxID)), false, nil
	case before.OrchardBalance >= MinOrchard:
		return fmt.Sprintf("already shielded: orchard %.8f ZEC", before.OrchardBalance), false, nil
	case before.TransparentBalance > 0:
		return fmt.Sprintf("transparent %.8f ZEC too small to shield", before.TransparentBalance), true, nil
	}

	return "no balance, mining has not completed", true, nil
}

func (s *Suite) send(ctx context.Context) (string, bool, error) {
	st, err := s.Faucet.Stats(ctx)
	if err != nil {
		return "", false, fmt.Errorf("get balance: %w", err)
	}

	if st.OrchardBalance < MinSend {
		return fmt.Sprintf("orchard %.8f ZEC, need at least %.1f", st.OrchardBalance, MinSend), true, nil
	}

	_, _ = s.Faucet.Sync(ctx)

	a, err := s.Faucet.Address(ctx)
	if err != nil {
		return "", false, err
	}

	r, err := s.Faucet.Send(ctx, a.UnifiedAddress, SendAmount, sendMemo)
	if err != nil {
		return "", false, fmt.Errorf("send: %w", err)
	}

	if r.Status != faucet.StatusSent {
		return "", false, fmt.Errorf("%w: send status %q: %s", errUnexpected, r.Status, r.Message)
	}

	return fmt.Sprintf("sent %s ZEC, txid %s, orchard %.8f ZEC", SendAmount, short(r.TxID), r.OrchardBalance), false, nil
}

// Failed returns the number of failed checks.
func Failed(res []Result) int {
	n := 0

	for _, r := range res {
		if !r.Passed {
			n++
		}
	}

	return n
}

// Print writes the results table and a totals line.
func Print(w io.Writer, res []Result) {
	rows := make([][]string, 0, len(res))

	for i, r := range res {
		outcome := "PASS"

		switch {
		case !r.Passed:
			outcome = "FAIL"
		case r.Skipped:
			outcome = "SKIP"
		}

		rows = append(rows, []string{
			fmt.Sprintf("%d/%d", i+1, len(res)), r.Name, outcome, r.Elapsed.Round(time.Millisecond).String(), r.Detail,
		})
	}

	fmt.Fprintln(w, table.Render(
		[]string{"#", "Check", "Result", "Elapsed", "Details"},
		rows,
		[]table.Alignment{table.AlignRight, table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignLeft},
	))

	failed := Failed(res)
	fmt.Fprintf(w, "passed: %d, failed: %d\n", len(res)-failed, failed)
}

func short(s string) string {
	const n = 16

	if len(s) <= n {
		return s
	}

	return strings.TrimSpace(s[:n]) + "..."
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
