// Package block defines the interface required for the node of the development network.
package block

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarancss/zecdev/lib/block/zebra"
	"github.com/tarancss/zecdev/lib/config"
)

// Node contains the node methods used by the bootstrapper, the miner and the faucet. Generate is fire-and-forget
// from the callers' point of view: they only care whether the request was accepted.
type Node interface {
	BlockHeight(ctx context.Context) (uint64, error)
	Generate(ctx context.Context, n int) ([]string, error)
	Ping(ctx context.Context) error
	ValidateAddress(ctx context.Context, address string) (bool, error)
	Close()
}

// ErrNoNode is returned when the node url is missing.
var ErrNoNode = errors.New("node url not configured")

// Init returns the node client for the configured node.
func Init(c config.NodeConfig) (Node, error) {
	if c.URL == "" {
		return nil, ErrNoNode
	}

	n, err := zebra.Init(c.URL, c.User, c.Password)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", c.URL, err)
	}

	return n, nil
}
