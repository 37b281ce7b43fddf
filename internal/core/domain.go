package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TxnType = "income"
	Expense TxnType = "expense"
)

const (
	RecurNone    Recurrence = "none"
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// DefaultCategory is applied when a draft carries no category.
const DefaultCategory = "general"

// PresetCategories are offered as defaults; the field stays free-form.
var PresetCategories = []string{
	"general", "food", "housing", "transport", "health",
	"entertainment", "salary", "savings",
}

type (
	TxnType    string
	Recurrence string

	Transaction struct {
		ID        int64
		Type      TxnType
		Amount    decimal.Decimal
		Category  string
		Date      Date
		Note      string
		Recurring Recurrence
	}

	Budget struct {
		Category string
		Limit    decimal.Decimal
	}

	Goal struct {
		ID      int64
		Name    string
		Target  decimal.Decimal
		Current decimal.Decimal
	}
)

var (
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidRecurrence = errors.New("invalid recurrence")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyName         = errors.New("empty name")
)

func (t TxnType) Valid() bool {
	return t == Income || t == Expense
}

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if !t.Recurring.Valid() {
		return ErrInvalidRecurrence
	}
	return nil
}

// IsTemplate reports whether the transaction projects future occurrences.
func (t Transaction) IsTemplate() bool {
	return t.Recurring != RecurNone && t.Recurring.Valid()
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// DupKey is the duplicate-suppression key: two transactions with the same
// type, amount, category and date count as the same occurrence, regardless
// of id, note or origin.
func (t Transaction) DupKey() string {
	return DupKey(t.Type, t.Amount, t.Category, t.Date)
}

func DupKey(typ TxnType, amount decimal.Decimal, category string, date Date) string {
	return string(typ) + "|" + amount.String() + "|" + category + "|" + date.String()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Limit.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.Target.IsNegative() || g.Current.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
