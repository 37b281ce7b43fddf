package amqp

import (
	"encoding/json"
	"time"

	"tally/internal/core"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// TransactionEvent is the message published to the event feed after a local
// write. Consumers are external; the tracker never depends on delivery.
type TransactionEvent struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Category  string    `json:"category"`
	Date      string    `json:"date"`
	Recurring string    `json:"recurring"`
	Timestamp time.Time `json:"timestamp"`
}

// IsTemplate reports whether the event announces a recurring template.
func (e *TransactionEvent) IsTemplate() bool {
	return e.Recurring != "" && e.Recurring != string(core.RecurNone)
}

// NewCreatedEvent builds the event for a freshly stored transaction.
func NewCreatedEvent(id int64, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Action:    ActionCreated,
		ID:        id,
		Type:      string(t.Type),
		Amount:    t.Amount.String(),
		Category:  t.Category,
		Date:      t.Date.String(),
		Recurring: string(t.Recurring),
		Timestamp: time.Now(),
	}
}

// NewDeletedEvent builds the event for a removed transaction.
func NewDeletedEvent(id int64) *TransactionEvent {
	return &TransactionEvent{
		Action:    ActionDeleted,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
