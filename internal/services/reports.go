package services

import (
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Pure aggregation over transaction snapshots. No I/O, no side effects.

// ComputeBalance returns the signed sum of all transactions: income adds,
// expense subtracts. The empty snapshot balances to zero.
func ComputeBalance(txns []core.Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, t := range txns {
		balance = balance.Add(t.Signed())
	}
	return balance
}

// CategoryExpenseSums sums expense amounts per category for transactions
// dated within windowDays of today, both boundaries inclusive. Expenses
// dated after today are not yet in the window. Income never contributes,
// whatever its date.
func CategoryExpenseSums(txns []core.Transaction, windowDays int, today core.Date) map[string]decimal.Decimal {
	cutoff := today.AddDays(-windowDays)

	sums := make(map[string]decimal.Decimal)
	for _, t := range txns {
		if t.Type != core.Expense {
			continue
		}
		if t.Date.Before(cutoff) || t.Date.After(today) {
			continue
		}
		sums[t.Category] = sums[t.Category].Add(t.Amount)
	}
	return sums
}
