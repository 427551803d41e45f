// Package types defines the messages published to the broker.
package types

import "time"

// Kinds of faucet events.
const (
	SEND    = "send"
	REQUEST = "request"
	SHIELD  = "shield"
	SYNC    = "sync"
)

// Event is published by the faucet each time it changes the wallet state.
type Event struct {
	Kind      string    `json:"kind"`
	TxID      string    `json:"txid,omitempty"`
	ToAddress string    `json:"to_address,omitempty"`
	Amount    uint64    `json:"amount,omitempty"` // zatoshis
	Height    uint64    `json:"height,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RoutingKey returns the topic used to publish the event.
func (e Event) RoutingKey() string {
	if e.TxID == "" {
		return "faucet." + e.Kind
	}

	return "faucet." + e.Kind + "." + e.TxID
}
