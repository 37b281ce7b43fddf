package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func validTxn() Transaction {
	return Transaction{
		Type:      Expense,
		Amount:    decimal.NewFromInt(42),
		Category:  "food",
		Date:      MustParseDate("2024-03-01"),
		Recurring: RecurNone,
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid", func(*Transaction) {}, nil},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"bad recurrence", func(tx *Transaction) { tx.Recurring = "fortnightly" }, ErrInvalidRecurrence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTxn()
			tt.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionSigned(t *testing.T) {
	tx := validTxn()
	if !tx.Signed().Equal(decimal.NewFromInt(-42)) {
		t.Errorf("expense Signed() = %s, want -42", tx.Signed())
	}
	tx.Type = Income
	if !tx.Signed().Equal(decimal.NewFromInt(42)) {
		t.Errorf("income Signed() = %s, want 42", tx.Signed())
	}
}

func TestDupKeyIgnoresNoteAndID(t *testing.T) {
	a := validTxn()
	b := validTxn()
	b.ID = 99
	b.Note = "manual entry"
	b.Recurring = RecurMonthly
	if a.DupKey() != b.DupKey() {
		t.Errorf("DupKey differs on id/note/recurring: %q vs %q", a.DupKey(), b.DupKey())
	}

	c := validTxn()
	c.Amount = decimal.RequireFromString("42.01")
	if a.DupKey() == c.DupKey() {
		t.Error("DupKey ignores amount")
	}
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		check   func(t *testing.T, tx Transaction)
		wantErr error
	}{
		{
			name:   "full draft",
			fields: map[string]string{"type": "expense", "amount": "12.50", "category": "food", "date": "2024-03-05", "note": "lunch", "recurring": "weekly"},
			check: func(t *testing.T, tx Transaction) {
				if tx.Type != Expense || tx.Category != "food" || tx.Recurring != RecurWeekly {
					t.Errorf("unexpected draft result: %+v", tx)
				}
				if !tx.Amount.Equal(decimal.RequireFromString("12.5")) {
					t.Errorf("amount = %s, want 12.5", tx.Amount)
				}
			},
		},
		{
			name:   "defaults applied",
			fields: map[string]string{"type": "income", "amount": "100"},
			check: func(t *testing.T, tx Transaction) {
				if tx.Category != DefaultCategory {
					t.Errorf("category = %q, want %q", tx.Category, DefaultCategory)
				}
				if tx.Recurring != RecurNone {
					t.Errorf("recurring = %q, want none", tx.Recurring)
				}
				if !tx.Date.Equal(Today()) {
					t.Errorf("date = %s, want today", tx.Date)
				}
			},
		},
		{
			name:   "type is case-insensitive",
			fields: map[string]string{"type": "Income", "amount": "1"},
			check: func(t *testing.T, tx Transaction) {
				if tx.Type != Income {
					t.Errorf("type = %q, want income", tx.Type)
				}
			},
		},
		{"missing type", map[string]string{"amount": "5"}, nil, ErrInvalidType},
		{"unparseable amount", map[string]string{"type": "expense", "amount": "abc"}, nil, ErrInvalidAmount},
		{"negative amount", map[string]string{"type": "expense", "amount": "-5"}, nil, ErrInvalidAmount},
		{"bad date", map[string]string{"type": "expense", "amount": "5", "date": "05/03/2024"}, nil, ErrInvalidDate},
		{"bad recurrence", map[string]string{"type": "expense", "amount": "5", "recurring": "hourly"}, nil, ErrInvalidRecurrence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := ParseDraft(tt.fields)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDraft() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDraft() unexpected error: %v", err)
			}
			tt.check(t, tx)
		})
	}
}
