package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "faucet.send.ab12", Event{Kind: SEND, TxID: "ab12"}.RoutingKey())
	assert.Equal(t, "faucet.sync", Event{Kind: SYNC, Height: 120}.RoutingKey())
}
