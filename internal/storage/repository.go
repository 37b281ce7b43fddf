package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// Store is the single durable handle for the three collections:
// transactions, budgets and goals. It is the sole writer of record;
// everything callers hold in memory is a read snapshot.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at dbPath and brings
// the schema up to date.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertTransaction stores a new transaction and returns its generated id.
// Ids are assigned by AUTOINCREMENT, so they are monotonic and never reused.
func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (type, amount, category, date, note, recurring)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(t.Type), t.Amount.String(), t.Category, t.Date.String(), t.Note, string(t.Recurring))
	if err != nil {
		return 0, storageErr("insert transaction", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert transaction id", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", id,
		"type", t.Type,
		"amount", t.Amount,
		"category", t.Category,
		"date", t.Date)

	return id, nil
}

// UpdateTransaction replaces the stored row matching t.ID.
func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET type = ?, amount = ?, category = ?, date = ?, note = ?, recurring = ?
		 WHERE id = ?`,
		string(t.Type), t.Amount.String(), t.Category, t.Date.String(), t.Note, string(t.Recurring), t.ID)
	if err != nil {
		return storageErr("update transaction", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update transaction %d: %w", t.ID, ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes a transaction. Deleting an absent id is a no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return storageErr("delete transaction", err)
	}
	return nil
}

// GetTransaction returns a single transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, amount, category, date, note, recurring
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, storageErr("get transaction", err)
	}
	return t, nil
}

// ListTransactions scans the whole collection. Order is unspecified;
// callers sort as needed.
func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, amount, category, date, note, recurring FROM transactions`)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storageErr("scan transaction", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list transactions", err)
	}
	return txns, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var (
		t                            core.Transaction
		typ, amount, date, recurring string
	)
	if err := r.Scan(&t.ID, &typ, &amount, &t.Category, &date, &t.Note, &recurring); err != nil {
		return core.Transaction{}, err
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	parsedDate, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}

	t.Type = core.TxnType(typ)
	t.Amount = parsedAmount
	t.Date = parsedDate
	t.Recurring = core.Recurrence(recurring)
	return t, nil
}

// UpsertBudget inserts or replaces the budget keyed by category.
func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (category, limit_amount) VALUES (?, ?)
		 ON CONFLICT (category) DO UPDATE SET limit_amount = excluded.limit_amount`,
		b.Category, b.Limit.String())
	if err != nil {
		return storageErr("upsert budget", err)
	}

	slog.DebugContext(ctx, "Budget saved", "category", b.Category, "limit", b.Limit)
	return nil
}

// DeleteBudget removes the budget for a category; absent is a no-op.
func (s *Store) DeleteBudget(ctx context.Context, category string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE category = ?`, category); err != nil {
		return storageErr("delete budget", err)
	}
	return nil
}

// ListBudgets scans all budgets.
func (s *Store) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, limit_amount FROM budgets`)
	if err != nil {
		return nil, storageErr("list budgets", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b     core.Budget
			limit string
		)
		if err := rows.Scan(&b.Category, &limit); err != nil {
			return nil, storageErr("scan budget", err)
		}
		b.Limit, err = decimal.NewFromString(limit)
		if err != nil {
			return nil, storageErr("parse budget limit", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list budgets", err)
	}
	return budgets, nil
}

// InsertGoal stores a new savings goal and returns its generated id.
func (s *Store) InsertGoal(ctx context.Context, g core.Goal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (name, target, current) VALUES (?, ?, ?)`,
		g.Name, g.Target.String(), g.Current.String())
	if err != nil {
		return 0, storageErr("insert goal", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert goal id", err)
	}
	return id, nil
}

// UpdateGoal replaces the stored goal matching g.ID.
func (s *Store) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET name = ?, target = ?, current = ? WHERE id = ?`,
		g.Name, g.Target.String(), g.Current.String(), g.ID)
	if err != nil {
		return storageErr("update goal", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update goal %d: %w", g.ID, ErrNotFound)
	}
	return nil
}

// DeleteGoal removes a goal; absent is a no-op.
func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
		return storageErr("delete goal", err)
	}
	return nil
}

// ListGoals scans all goals.
func (s *Store) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, target, current FROM goals`)
	if err != nil {
		return nil, storageErr("list goals", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var (
			g               core.Goal
			target, current string
		)
		if err := rows.Scan(&g.ID, &g.Name, &target, &current); err != nil {
			return nil, storageErr("scan goal", err)
		}
		if g.Target, err = decimal.NewFromString(target); err != nil {
			return nil, storageErr("parse goal target", err)
		}
		if g.Current, err = decimal.NewFromString(current); err != nil {
			return nil, storageErr("parse goal current", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list goals", err)
	}
	return goals, nil
}
