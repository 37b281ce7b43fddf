package services

import (
	"context"
	"fmt"
	"log/slog"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

// TransactionService persists transactions and announces writes on the
// event feed. The local write is authoritative; feed failures are logged
// and never fail the request.
type TransactionService struct {
	store  *storage.Store
	events *amqp.Client
}

func NewTransactionService(store *storage.Store, events *amqp.Client) *TransactionService {
	return &TransactionService{
		store:  store,
		events: events,
	}
}

// Create validates and stores a transaction, returning its generated id.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	id, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publish(ctx, amqp.NewCreatedEvent(id, t)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish created event",
			"transaction_id", id, "error", err)
	}

	return id, nil
}

// Update validates and replaces an existing transaction.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// Delete removes a transaction and announces the deletion.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publish(ctx, amqp.NewDeletedEvent(id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deleted event",
			"transaction_id", id, "error", err)
	}

	return nil
}

// Import stores a batch of already-parsed transactions, one insert per row.
// A failed row is logged and skipped; the batch continues.
func (s *TransactionService) Import(ctx context.Context, txns []core.Transaction) (created, failed int) {
	for _, t := range txns {
		t.ID = 0 // imported ids are never trusted
		if _, err := s.Create(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to import transaction row",
				"category", t.Category, "date", t.Date, "error", err)
			failed++
			continue
		}
		created++
	}
	return created, failed
}

func (s *TransactionService) publish(ctx context.Context, event *amqp.TransactionEvent) error {
	if s.events == nil {
		return nil
	}
	return s.events.PublishTransactionEvent(ctx, event)
}
