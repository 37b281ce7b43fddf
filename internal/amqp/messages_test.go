package amqp

import (
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func TestCreatedEventCarriesTransactionFields(t *testing.T) {
	tx := core.Transaction{
		Type:      core.Expense,
		Amount:    decimal.RequireFromString("19.99"),
		Category:  "entertainment",
		Date:      core.MustParseDate("2024-04-01"),
		Recurring: core.RecurWeekly,
	}

	event := NewCreatedEvent(7, tx)
	if event.Action != ActionCreated || event.ID != 7 {
		t.Errorf("unexpected envelope: %+v", event)
	}
	if event.Amount != "19.99" || event.Date != "2024-04-01" || event.Type != "expense" {
		t.Errorf("unexpected payload: %+v", event)
	}
	if event.Recurring != "weekly" || !event.IsTemplate() {
		t.Errorf("template cadence lost: %+v", event)
	}

	body, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}
	decoded, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON() error: %v", err)
	}
	if decoded.Category != "entertainment" || decoded.Action != ActionCreated {
		t.Errorf("decode mismatch: %+v", decoded)
	}
}

func TestDeletedEventHasNoPayload(t *testing.T) {
	event := NewDeletedEvent(12)
	if event.Action != ActionDeleted || event.ID != 12 {
		t.Errorf("unexpected event: %+v", event)
	}
	if event.Amount != "" || event.Category != "" {
		t.Errorf("deleted event should not carry transaction data: %+v", event)
	}
	if event.IsTemplate() {
		t.Error("deleted event must never read as a template")
	}
}

func TestTransactionEventFromJSONRejectsGarbage(t *testing.T) {
	if _, err := TransactionEventFromJSON([]byte("{not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
