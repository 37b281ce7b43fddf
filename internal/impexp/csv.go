// Package impexp implements the CSV import/export format for transactions.
//
// The format is one header row followed by one row per transaction with the
// fields id,type,amount,category,date,note,recurring. Import never trusts
// ids; the store reassigns them.
package impexp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"tally/internal/core"
)

// Header is the canonical column order.
var Header = []string{"id", "type", "amount", "category", "date", "note", "recurring"}

// ImportResult reports a parsed batch. Rows without a valid type or a
// parseable amount are counted in Skipped, never aborting the batch.
type ImportResult struct {
	Transactions []core.Transaction
	Skipped      int
}

// Export writes the transaction set as CSV, values individually quoted and
// escaped per RFC 4180.
func Export(w io.Writer, txns []core.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txns {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			string(t.Type),
			t.Amount.String(),
			t.Category,
			t.Date.String(),
			t.Note,
			string(t.Recurring),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Import parses CSV rows into transaction drafts. A leading header row is
// recognized and skipped; malformed rows are skipped and counted.
func Import(r io.Reader) (ImportResult, error) {
	var result ImportResult

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows are validated field-wise below

	for rowNum := 0; ; rowNum++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A structurally broken row (bad quoting) is a skip, not an abort.
			slog.Warn("Skipping unreadable csv row", "row", rowNum, "error", err)
			result.Skipped++
			continue
		}

		if rowNum == 0 && isHeader(record) {
			continue
		}

		fields := map[string]string{}
		for i, name := range Header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}
		delete(fields, "id")

		t, err := core.ParseDraft(fields)
		if err != nil {
			slog.Warn("Skipping invalid csv row", "row", rowNum, "error", err)
			result.Skipped++
			continue
		}
		result.Transactions = append(result.Transactions, t)
	}

	return result, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && record[0] == "id"
}
