package amqp

import (
	"testing"
	"time"
)

func TestNewLedgerEventMessage(t *testing.T) {
	msg := NewLedgerEventMessage(EntityTransaction, 42, OpUpdated, 3)

	if msg.Entity != EntityTransaction {
		t.Errorf("Entity = %q, want %q", msg.Entity, EntityTransaction)
	}
	if msg.ID != 42 {
		t.Errorf("ID = %d, want 42", msg.ID)
	}
	if msg.Op != OpUpdated {
		t.Errorf("Op = %q, want %q", msg.Op, OpUpdated)
	}
	if msg.Version != 3 {
		t.Errorf("Version = %d, want 3", msg.Version)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestLedgerEventMessage_JSON(t *testing.T) {
	msg := &LedgerEventMessage{
		Entity:    EntityTransaction,
		ID:        12345,
		Op:        OpCreated,
		Version:   1,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := LedgerEventMessageFromJSON(body)
	if err != nil {
		t.Fatalf("LedgerEventMessageFromJSON() error = %v", err)
	}

	if parsed.Entity != msg.Entity || parsed.ID != msg.ID || parsed.Op != msg.Op || parsed.Version != msg.Version {
		t.Errorf("round trip = %+v, want %+v", parsed, msg)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestLedgerEventMessage_InvalidJSON(t *testing.T) {
	if _, err := LedgerEventMessageFromJSON([]byte(`{"id": "not_a_number"}`)); err == nil {
		t.Error("LedgerEventMessageFromJSON() should fail with invalid JSON")
	}
}
