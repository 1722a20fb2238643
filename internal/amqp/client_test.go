package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionEventMessage(t *testing.T) {
	msg := NewTransactionEventMessage("tx-123", OpCreate)

	if msg.TransactionID != "tx-123" {
		t.Errorf("TransactionID = %v, want tx-123", msg.TransactionID)
	}
	if msg.Op != OpCreate {
		t.Errorf("Op = %v, want %v", msg.Op, OpCreate)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestTransactionEventMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionEventMessage{
		TransactionID: "tx-456",
		Op:            OpDelete,
		Timestamp:     timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := TransactionEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TransactionEventMessageFromJSON() error = %v", err)
	}

	if parsed.TransactionID != msg.TransactionID {
		t.Errorf("Parsed TransactionID = %v, want %v", parsed.TransactionID, msg.TransactionID)
	}
	if parsed.Op != msg.Op {
		t.Errorf("Parsed Op = %v, want %v", parsed.Op, msg.Op)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestTransactionEventMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"transaction_id": 42, "op": ["create"]}`)

	if _, err := TransactionEventMessageFromJSON(invalidJSON); err == nil {
		t.Error("TransactionEventMessageFromJSON() should fail with invalid JSON")
	}
}
