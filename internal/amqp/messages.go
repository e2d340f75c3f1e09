package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finance/internal/core"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TransactionEvent is published after every successful write. Transaction
// is nil for deletions.
type TransactionEvent struct {
	Event       EventType         `json:"event"`
	ID          int64             `json:"id"`
	Transaction *core.Transaction `json:"transaction"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewCreatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{Event: EventCreated, ID: tx.ID, Transaction: &tx, Timestamp: time.Now()}
}

func NewUpdatedEvent(tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{Event: EventUpdated, ID: tx.ID, Transaction: &tx, Timestamp: time.Now()}
}

func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{Event: EventDeleted, ID: id, Timestamp: time.Now()}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes an event. Created and updated events
// must carry the transaction body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.ID <= 0 {
		return nil, fmt.Errorf("event %q: invalid id %d", ev.Event, ev.ID)
	}
	if (ev.Event == EventCreated || ev.Event == EventUpdated) && ev.Transaction == nil {
		return nil, fmt.Errorf("event %q for id %d has no transaction", ev.Event, ev.ID)
	}
	return &ev, nil
}
