package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDraft builds a Transaction from untyped key/value input, the shape
// produced by form submits and CSV rows. Type and amount are mandatory;
// date defaults to today, category to DefaultCategory, recurring to none.
func ParseDraft(fields map[string]string) (Transaction, error) {
	get := func(key string) string {
		return strings.TrimSpace(fields[key])
	}

	t := Transaction{
		Type:      TxnType(strings.ToLower(get("type"))),
		Category:  get("category"),
		Note:      get("note"),
		Recurring: Recurrence(strings.ToLower(get("recurring"))),
	}

	if !t.Type.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, get("type"))
	}

	amount, err := decimal.NewFromString(get("amount"))
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidAmount, get("amount"))
	}
	if amount.IsNegative() {
		return Transaction{}, fmt.Errorf("%w: negative magnitude %s", ErrInvalidAmount, amount)
	}
	t.Amount = amount

	if raw := get("date"); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			return Transaction{}, err
		}
		t.Date = d
	} else {
		t.Date = Today()
	}

	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.Recurring == "" {
		t.Recurring = RecurNone
	}
	if !t.Recurring.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidRecurrence, get("recurring"))
	}

	return t, nil
}
