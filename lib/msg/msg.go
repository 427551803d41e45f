// Package msg defines the interface for different message brokers.
package msg

import (
	"github.com/tarancss/zecdev/lib/msg/types"
)

// Exchange is where faucet events are published.
const Exchange = "fe"

// Broker publishes faucet events and lets other services consume them.
type Broker interface {
	Setup() error
	Close() error

	// SendEvent publishes an event to the faucet events exchange.
	SendEvent(e types.Event) error
	// GetEvents consumes the events published to the exchange on the named queue. Messages are acknowledged once
	// they are read from the returned channel.
	GetEvents(queue string) (<-chan types.Event, <-chan error, error)
}
