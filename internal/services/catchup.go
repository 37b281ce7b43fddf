package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/storage"
)

// DefaultMaxOccurrences bounds how many occurrences one template may
// materialize in a single pass. A daily template forgotten for years would
// otherwise dominate the run; hitting the cap is reported, not hidden.
const DefaultMaxOccurrences = 1000

// occurrenceNoteSuffix marks rows produced by the catch-up pass.
const occurrenceNoteSuffix = " (recurring)"

// CatchUpProcessor materializes every occurrence of every recurring
// template that should have happened by "today" but has not been recorded.
//
// The pass reads one snapshot of the transaction set up front and decides
// duplicates against it: a transaction matching (type, amount, category,
// date) counts as already generated, even if it was entered manually.
// Materialized occurrences are stored with recurring = none, so they never
// become templates themselves on later runs.
type CatchUpProcessor struct {
	store          *storage.Store
	txns           *TransactionService
	maxOccurrences int
}

// CatchUpReport summarizes one pass.
type CatchUpReport struct {
	Templates  int // templates scanned
	Created    int // occurrences materialized
	Duplicates int // occurrences suppressed by the 4-tuple key
	Capped     int // templates stopped by the per-template cap
	Failed     int // templates stopped by a storage or date error
}

func NewCatchUpProcessor(store *storage.Store, txns *TransactionService, maxOccurrences int) *CatchUpProcessor {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	return &CatchUpProcessor{
		store:          store,
		txns:           txns,
		maxOccurrences: maxOccurrences,
	}
}

// Run brings the transaction set up to date with respect to today.
// Each template's catch-up is independent: a failure stops that template
// only and is counted in the report. Running the pass twice is a no-op the
// second time; duplicate suppression makes it idempotent.
func (p *CatchUpProcessor) Run(ctx context.Context, today core.Date) (CatchUpReport, error) {
	var report CatchUpReport

	snapshot, err := p.store.ListTransactions(ctx)
	if err != nil {
		return report, fmt.Errorf("read transaction snapshot: %w", err)
	}

	// Index the snapshot once; extended as the run materializes rows so two
	// templates projecting the same tuple in one run collapse to one row.
	seen := make(map[string]struct{}, len(snapshot))
	for _, t := range snapshot {
		seen[t.DupKey()] = struct{}{}
	}

	slog.InfoContext(ctx, "Starting recurrence catch-up pass",
		"transactions", len(snapshot),
		"today", today.String())

	for _, tmpl := range snapshot {
		if !tmpl.IsTemplate() {
			continue
		}
		report.Templates++
		p.catchUpTemplate(ctx, tmpl, today, seen, &report)
	}

	slog.InfoContext(ctx, "Recurrence catch-up pass complete",
		"templates", report.Templates,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"capped", report.Capped,
		"failed", report.Failed)

	return report, nil
}

// EventHandler returns a feed handler that reruns the pass whenever a
// recurring template is created, so a backdated template materializes
// without waiting for the next scheduled pass. Occurrence and deletion
// events never trigger; materialized rows carry recurring = none, so the
// pass's own writes cannot feed back into it.
func (p *CatchUpProcessor) EventHandler(ctx context.Context) func(*amqp.TransactionEvent) error {
	return func(e *amqp.TransactionEvent) error {
		if e.Action != amqp.ActionCreated || !e.IsTemplate() {
			return nil
		}
		slog.InfoContext(ctx, "Template event received, running catch-up pass",
			"template_id", e.ID, "recurring", e.Recurring)
		_, err := p.Run(ctx, core.Today())
		return err
	}
}

func (p *CatchUpProcessor) catchUpTemplate(ctx context.Context, tmpl core.Transaction, today core.Date, seen map[string]struct{}, report *CatchUpReport) {
	adv, err := AdvancerFor(tmpl.Recurring)
	if err != nil {
		slog.ErrorContext(ctx, "Template has no advancer",
			"template_id", tmpl.ID,
			"recurring", tmpl.Recurring,
			"error", err)
		report.Failed++
		return
	}

	cursor := tmpl.Date
	for steps := 0; ; steps++ {
		if steps >= p.maxOccurrences {
			slog.WarnContext(ctx, "Template hit catch-up cap",
				"template_id", tmpl.ID,
				"cap", p.maxOccurrences,
				"cursor", cursor.String())
			report.Capped++
			return
		}

		next := adv.Next(cursor)
		if !next.After(cursor) {
			// A cursor that stops moving would loop forever.
			slog.ErrorContext(ctx, "Template cursor failed to advance",
				"template_id", tmpl.ID,
				"cursor", cursor.String())
			report.Failed++
			return
		}
		cursor = next

		if cursor.After(today) {
			return
		}

		key := core.DupKey(tmpl.Type, tmpl.Amount, tmpl.Category, cursor)
		if _, exists := seen[key]; exists {
			report.Duplicates++
			continue
		}

		occurrence := core.Transaction{
			Type:      tmpl.Type,
			Amount:    tmpl.Amount,
			Category:  tmpl.Category,
			Date:      cursor,
			Note:      strings.TrimSpace(tmpl.Note + occurrenceNoteSuffix),
			Recurring: core.RecurNone,
		}
		if _, err := p.txns.Create(ctx, occurrence); err != nil {
			slog.ErrorContext(ctx, "Failed to materialize occurrence",
				"template_id", tmpl.ID,
				"date", cursor.String(),
				"error", err)
			report.Failed++
			return
		}

		seen[key] = struct{}{}
		report.Created++
	}
}
