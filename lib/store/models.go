package store

import "time"

// Kinds of transactions sent by the faucet.
const (
	KindSend    = "send"
	KindRequest = "request"
)

// TxRecord contains the fields of a faucet transaction saved to DB. Amount is in zatoshis.
type TxRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Kind      string    `json:"kind" bson:"kind"`
	ToAddress string    `json:"to_address" bson:"to_address"`
	Amount    uint64    `json:"amount" bson:"amount"`
	TxID      string    `json:"txid" bson:"txid"`
	Memo      string    `json:"memo,omitempty" bson:"memo,omitempty"`
}
