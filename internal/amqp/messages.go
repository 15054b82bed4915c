package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerEventMessage is a lightweight change notification. It carries only
// the entity reference and version; the worker fetches the full row from the
// database, so a stale message never overwrites newer state.
type LedgerEventMessage struct {
	Entity    string    `json:"entity"`
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(entity string, id int64, op string, version int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Entity:    entity,
		ID:        id,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
