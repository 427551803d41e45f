package devnet

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/block"
	"github.com/tarancss/zecdev/lib/metrics"
)

// Miner defaults.
const (
	MinerInterval   = 15 * time.Second
	GenerateTimeout = 10 * time.Second
)

// Miner asks the node for one block on every run. It implements cron.Job. Failures are logged and counted, never
// retried: the next run tries again.
type Miner struct {
	node    block.Node
	log     *zap.Logger
	m       *metrics.Metrics
	Timeout time.Duration
}

// NewMiner returns a miner for node.
func NewMiner(node block.Node, log *zap.Logger, m *metrics.Metrics) *Miner {
	return &Miner{node: node, log: log.Named("miner"), m: m, Timeout: GenerateTimeout}
}

// Run mines one block.
func (mi *Miner) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), mi.Timeout)
	defer cancel()

	hashes, err := mi.node.Generate(ctx, 1)
	mi.m.BlockMined(err == nil)

	if err != nil {
		mi.log.Debug("generate failed", zap.Error(err))

		return
	}

	if len(hashes) > 0 {
		mi.log.Debug("block mined", zap.String("hash", hashes[0]))
	}
}
