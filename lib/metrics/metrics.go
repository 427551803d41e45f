// Package metrics defines the Prometheus collectors exported by the faucet and the devnet bootstrapper. All recorder
// methods are safe on a nil *Metrics so components can run without monitoring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sync results.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultTimeout = "timeout"
	ResultSkipped = "skipped"
	ResultBusy    = "busy"
)

// Metrics holds the collectors.
type Metrics struct {
	blocksMined *prometheus.CounterVec
	syncs       *prometheus.CounterVec
	walletOps   *prometheus.CounterVec
	balance     *prometheus.GaugeVec
	phases      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		blocksMined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zecdev",
			Name:      "blocks_mined_total",
			Help:      "Block production requests sent to the node by result.",
		}, []string{"result"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zecdev",
			Name:      "wallet_sync_total",
			Help:      "Background wallet sync cycles by result.",
		}, []string{"result"}),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zecdev",
			Name:      "wallet_ops_total",
			Help:      "Wallet API operations by operation and result.",
		}, []string{"op", "result"}),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "zecdev",
			Name:      "wallet_balance_zatoshis",
			Help:      "Last wallet balance read per pool.",
		}, []string{"pool"}),
		phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zecdev",
			Name:      "bootstrap_phase_total",
			Help:      "Bootstrap phases run by phase and outcome.",
		}, []string{"phase", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.blocksMined, m.syncs, m.walletOps, m.balance, m.phases)
	}

	return m
}

// BlockMined counts a block production request.
func (m *Metrics) BlockMined(ok bool) {
	if m == nil {
		return
	}

	m.blocksMined.WithLabelValues(okLabel(ok)).Inc()
}

// Sync counts a background sync cycle.
func (m *Metrics) Sync(result string) {
	if m == nil {
		return
	}

	m.syncs.WithLabelValues(result).Inc()
}

// WalletOp counts an API wallet operation.
func (m *Metrics) WalletOp(op, result string) {
	if m == nil {
		return
	}

	m.walletOps.WithLabelValues(op, result).Inc()
}

// Balance records the balance of each pool.
func (m *Metrics) Balance(transparent, sapling, orchard uint64) {
	if m == nil {
		return
	}

	m.balance.WithLabelValues("transparent").Set(float64(transparent))
	m.balance.WithLabelValues("sapling").Set(float64(sapling))
	m.balance.WithLabelValues("orchard").Set(float64(orchard))
}

// Phase counts a bootstrap phase outcome.
func (m *Metrics) Phase(phase, outcome string) {
	if m == nil {
		return
	}

	m.phases.WithLabelValues(phase, outcome).Inc()
}

func okLabel(ok bool) string {
	if ok {
		return ResultOK
	}

	return ResultError
}
