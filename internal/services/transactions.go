package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"microerp/internal/core"
)

// NewTransaction carries one manual entry from the API boundary. Amount is
// the decimal value as sent by the client; Date is optional YYYY-MM-DD and
// defaults to today.
type NewTransaction struct {
	Kind     string
	Category string
	Amount   float64
	Date     string
}

// MaxPageLimit caps the page size for history listings. Callers asking for
// more get exactly this many rows, so pagination metadata stays consistent.
const MaxPageLimit = 100

// TransactionService validates and records manual entries and serves the
// paginated history. Transactions are immutable once written.
type TransactionService struct {
	store TransactionStore
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{store: store}
}

// Add validates and stores one transaction for the owner.
func (s *TransactionService) Add(ctx context.Context, ownerID string, in NewTransaction) (*core.Transaction, error) {
	kind, err := core.ParseKind(in.Kind)
	if err != nil {
		return nil, err
	}
	cents, err := core.CentsFromFloat(in.Amount)
	if err != nil {
		return nil, err
	}

	occurredAt := core.Date{Time: time.Now().UTC().Truncate(24 * time.Hour)}
	if in.Date != "" {
		occurredAt, err = core.ParseDate(in.Date)
		if err != nil {
			return nil, err
		}
	}

	t := core.Transaction{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Kind:       kind,
		Category:   in.Category,
		Amount:     core.Money{Cents: cents},
		OccurredAt: occurredAt,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.InsertTransaction(ctx, &t); err != nil {
		return nil, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", t.ID,
		"owner_id", ownerID,
		"kind", t.Kind,
		"amount_cents", t.Amount.Cents)
	return &t, nil
}

// List returns one page of the owner's history, newest first, with the total
// row count for the client's pager.
func (s *TransactionService) List(ctx context.Context, ownerID string, page, limit int) ([]core.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	txs, total, err := s.store.ListTransactionsPage(ctx, ownerID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txs, total, nil
}
