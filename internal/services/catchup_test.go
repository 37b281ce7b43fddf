package services

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

func newTestProcessor(t *testing.T, maxOcc int) (*CatchUpProcessor, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	txns := NewTransactionService(store, nil)
	return NewCatchUpProcessor(store, txns, maxOcc), store
}

func mustInsert(t *testing.T, store *storage.Store, tx core.Transaction) int64 {
	t.Helper()
	id, err := store.InsertTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("insert fixture: %v", err)
	}
	return id
}

func datesOf(txns []core.Transaction) []string {
	var out []string
	for _, tx := range txns {
		out = append(out, tx.Date.String())
	}
	sort.Strings(out)
	return out
}

func TestCatchUpDailyCompleteness(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()
	today := core.MustParseDate("2024-03-04")

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(3),
		Category: "food", Date: core.MustParseDate("2024-03-01"),
		Note: "coffee", Recurring: core.RecurDaily,
	})

	report, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Created != 3 {
		t.Errorf("Created = %d, want 3", report.Created)
	}

	all, err := store.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d rows, want template + 3 occurrences", len(all))
	}

	want := []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"}
	if got := datesOf(all); !equalStrings(got, want) {
		t.Errorf("dates = %v, want %v", got, want)
	}

	for _, tx := range all {
		if tx.Date.After(today) {
			t.Errorf("occurrence dated after today: %s", tx.Date)
		}
		if tx.Date.Equal(core.MustParseDate("2024-03-01")) {
			continue // the template itself
		}
		if tx.Recurring != core.RecurNone {
			t.Errorf("occurrence %s still tagged recurring %q", tx.Date, tx.Recurring)
		}
		if !strings.HasSuffix(tx.Note, "(recurring)") {
			t.Errorf("occurrence %s note = %q, want recurring marker", tx.Date, tx.Note)
		}
	}
}

func TestCatchUpIsIdempotent(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()
	today := core.MustParseDate("2024-03-10")

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(15),
		Category: "transport", Date: core.MustParseDate("2024-02-20"),
		Recurring: core.RecurWeekly,
	})

	first, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if first.Created == 0 {
		t.Fatal("first run created nothing; fixture is wrong")
	}

	before, _ := store.ListTransactions(ctx)

	second, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if second.Created != 0 {
		t.Errorf("second run Created = %d, want 0", second.Created)
	}
	if second.Duplicates != first.Created {
		t.Errorf("second run Duplicates = %d, want %d", second.Duplicates, first.Created)
	}

	after, _ := store.ListTransactions(ctx)
	if len(after) != len(before) {
		t.Errorf("row count changed across idempotent runs: %d -> %d", len(before), len(after))
	}
}

func TestCatchUpSuppressesManualDuplicates(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()
	today := core.MustParseDate("2024-03-02")
	amount := decimal.RequireFromString("9.99")

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: amount,
		Category: "entertainment", Date: core.MustParseDate("2024-03-01"),
		Recurring: core.RecurDaily,
	})
	// A manual row already occupies the next occurrence's tuple; its note
	// and origin do not matter.
	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: amount,
		Category: "entertainment", Date: core.MustParseDate("2024-03-02"),
		Note: "entered by hand", Recurring: core.RecurNone,
	})

	report, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Created != 0 {
		t.Errorf("Created = %d, want 0", report.Created)
	}
	if report.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", report.Duplicates)
	}

	all, _ := store.ListTransactions(ctx)
	if len(all) != 2 {
		t.Errorf("got %d rows, want the 2 fixtures only", len(all))
	}
}

func TestCatchUpMonthlyClampsTo31st(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()
	today := core.MustParseDate("2024-03-31")

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(1200),
		Category: "housing", Date: core.MustParseDate("2024-01-31"),
		Recurring: core.RecurMonthly,
	})

	report, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Created != 2 {
		t.Fatalf("Created = %d, want 2", report.Created)
	}

	all, _ := store.ListTransactions(ctx)
	// Jan 31 clamps to Feb 29 (leap year); the clamped cursor then steps to
	// Mar 29, not back to the 31st.
	want := []string{"2024-01-31", "2024-02-29", "2024-03-29"}
	if got := datesOf(all); !equalStrings(got, want) {
		t.Errorf("dates = %v, want %v", got, want)
	}
}

func TestCatchUpCapIsReported(t *testing.T) {
	p, store := newTestProcessor(t, 5)
	ctx := context.Background()
	today := core.MustParseDate("2024-03-20")

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(2),
		Category: "food", Date: core.MustParseDate("2024-03-01"),
		Recurring: core.RecurDaily,
	})

	report, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Created != 5 {
		t.Errorf("Created = %d, want cap of 5", report.Created)
	}
	if report.Capped != 1 {
		t.Errorf("Capped = %d, want 1", report.Capped)
	}
}

func TestCatchUpTwoTemplatesSameTupleCollapse(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()
	today := core.MustParseDate("2024-03-02")

	// Two identical templates project the same (type, amount, category,
	// date); the tuple key does not distinguish template origin.
	for i := 0; i < 2; i++ {
		mustInsert(t, store, core.Transaction{
			Type: core.Expense, Amount: decimal.NewFromInt(7),
			Category: "food", Date: core.MustParseDate("2024-03-01"),
			Recurring: core.RecurDaily,
		})
	}

	report, err := p.Run(ctx, today)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Templates != 2 {
		t.Errorf("Templates = %d, want 2", report.Templates)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, want 1 (second template sees the first's row)", report.Created)
	}
	if report.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", report.Duplicates)
	}
}

func TestCatchUpSkipsNonRecurringRows(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()

	mustInsert(t, store, core.Transaction{
		Type: core.Income, Amount: decimal.NewFromInt(100),
		Category: "salary", Date: core.MustParseDate("2024-01-01"),
		Recurring: core.RecurNone,
	})

	report, err := p.Run(ctx, core.MustParseDate("2024-06-01"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Templates != 0 || report.Created != 0 {
		t.Errorf("non-recurring row was treated as a template: %+v", report)
	}
}

type stuckAdvancer struct{}

func (stuckAdvancer) Next(d core.Date) core.Date { return d }

func TestCatchUpIsolatesFailedTemplate(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()

	// A cursor that never moves must stop its own template only.
	RegisterAdvancer(core.RecurWeekly, stuckAdvancer{})
	t.Cleanup(func() { RegisterAdvancer(core.RecurWeekly, WeeklyAdvancer{}) })

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(10),
		Category: "rent", Date: core.MustParseDate("2024-03-02"),
		Recurring: core.RecurWeekly,
	})
	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(3),
		Category: "food", Date: core.MustParseDate("2024-03-02"),
		Recurring: core.RecurDaily,
	})

	report, err := p.Run(ctx, core.MustParseDate("2024-03-04"))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
	if report.Created != 2 {
		t.Errorf("Created = %d, want 2 (daily template still caught up)", report.Created)
	}
}

func TestEventHandlerTriggersPassForTemplates(t *testing.T) {
	p, store := newTestProcessor(t, 0)
	ctx := context.Background()

	mustInsert(t, store, core.Transaction{
		Type: core.Expense, Amount: decimal.NewFromInt(3),
		Category: "food", Date: core.Today().AddDays(-2),
		Recurring: core.RecurDaily,
	})

	handler := p.EventHandler(ctx)

	// Occurrence and deletion events pass through without running.
	for _, e := range []*amqp.TransactionEvent{
		{Action: amqp.ActionCreated, Recurring: "none"},
		{Action: amqp.ActionDeleted},
	} {
		if err := handler(e); err != nil {
			t.Fatalf("handler(%s) error: %v", e.Action, err)
		}
	}
	all, err := store.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("non-template event ran a pass, got %d rows", len(all))
	}

	// A created template triggers a pass that materializes overdue rows.
	if err := handler(&amqp.TransactionEvent{Action: amqp.ActionCreated, Recurring: "daily"}); err != nil {
		t.Fatalf("handler(created template) error: %v", err)
	}
	all, err = store.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d rows, want template + 2 occurrences", len(all))
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
