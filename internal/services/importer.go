package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"microerp/internal/core"
)

var (
	// ErrEmptyCSV means the upload contained no data rows at all.
	ErrEmptyCSV = errors.New("empty csv file")
	// ErrNoValidRows means every data row was rejected.
	ErrNoValidRows = errors.New("no valid rows in csv file")
)

// ImportService handles CSV bulk import. A successful import triggers report
// generation as a side effect; the pipeline runs to completion before the
// import returns but its outcome never fails the import.
type ImportService struct {
	store   TransactionStore
	reports *ReportService
	events  EventPublisher
}

func NewImportService(store TransactionStore, reports *ReportService, events EventPublisher) *ImportService {
	return &ImportService{store: store, reports: reports, events: events}
}

// ImportCSV parses and stores transactions from r for the owner. The first
// record is a header naming at least type, category and amount; date is
// optional and defaults to today. Rows that fail validation are skipped, not
// fatal. Returns the stored transactions.
func (s *ImportService) ImportCSV(ctx context.Context, ownerID string, r io.Reader) ([]core.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := headerIndex(header)
	if cols.kind < 0 || cols.category < 0 || cols.amount < 0 {
		return nil, fmt.Errorf("%w: header must name type, category and amount", ErrNoValidRows)
	}

	today := core.Date{Time: time.Now().UTC()}
	var (
		txs     []core.Transaction
		skipped int
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}

		t, err := rowToTransaction(record, cols, ownerID, today)
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid CSV row", "line", line, "error", err)
			skipped++
			continue
		}
		txs = append(txs, t)
	}

	if len(txs) == 0 {
		if skipped == 0 {
			return nil, ErrEmptyCSV
		}
		return nil, ErrNoValidRows
	}

	if err := s.store.InsertTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("store imported transactions: %w", err)
	}

	slog.InfoContext(ctx, "CSV import completed",
		"owner_id", ownerID,
		"imported", len(txs),
		"skipped", skipped)

	if s.events != nil {
		if err := s.events.PublishTransactionsImported(ctx, ownerID, len(txs)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import event", "owner_id", ownerID, "error", err)
		}
	}

	// Fire-and-forget report refresh: awaited here so no background work
	// outlives the request, result intentionally discarded.
	if s.reports != nil {
		s.reports.GenerateQuiet(ctx, ownerID)
	}

	return txs, nil
}

type columnIndex struct {
	kind, category, amount, date int
}

func headerIndex(header []string) columnIndex {
	cols := columnIndex{kind: -1, category: -1, amount: -1, date: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "type", "kind":
			cols.kind = i
		case "category":
			cols.category = i
		case "amount":
			cols.amount = i
		case "date":
			cols.date = i
		}
	}
	return cols
}

func rowToTransaction(record []string, cols columnIndex, ownerID string, today core.Date) (core.Transaction, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	kind, err := core.ParseKind(field(cols.kind))
	if err != nil {
		return core.Transaction{}, err
	}
	cents, err := core.ParseDecimalToCents(field(cols.amount))
	if err != nil {
		return core.Transaction{}, err
	}

	occurredAt := today
	if v := field(cols.date); v != "" {
		occurredAt, err = core.ParseDate(v)
		if err != nil {
			return core.Transaction{}, err
		}
	}

	t := core.Transaction{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Kind:       kind,
		Category:   field(cols.category),
		Amount:     core.Money{Cents: cents},
		OccurredAt: occurredAt,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
