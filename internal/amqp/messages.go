package amqp

import (
	"encoding/json"
	"time"
)

// Event operations carried on the transaction stream.
const (
	OpCreate = "create"
	OpDelete = "delete"
)

// TransactionEventMessage is the lightweight message published for every
// transaction mutation. It carries only the id and operation; consumers
// fetch the full transaction from the database when they need it.
type TransactionEventMessage struct {
	TransactionID string    `json:"transaction_id"`
	Op            string    `json:"op"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEventMessage creates an event message stamped with the
// current time.
func NewTransactionEventMessage(transactionID, op string) *TransactionEventMessage {
	return &TransactionEventMessage{
		TransactionID: transactionID,
		Op:            op,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventMessageFromJSON creates a message from JSON bytes.
func TransactionEventMessageFromJSON(data []byte) (*TransactionEventMessage, error) {
	var msg TransactionEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
