package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"microerp/internal/core"
)

func newImportFixture(t *testing.T) (*ImportService, *fakeTransactionStore, *fakeReportStore, *fakePublisher) {
	t.Helper()
	store := &fakeTransactionStore{}
	registry := &fakeReportStore{}
	events := &fakePublisher{}
	reports := NewReportService(store, registry, events, t.TempDir())
	return NewImportService(store, reports, events), store, registry, events
}

func TestImportCSV(t *testing.T) {
	svc, store, registry, events := newImportFixture(t)

	csvData := strings.Join([]string{
		"type,category,amount,date",
		"income,Sales,150.50,2024-03-15",
		"expense,Rent,800,2024-03-01",
		"income,Consulting,99.99,2024-02-10",
	}, "\n")

	txs, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if txs[0].Kind != core.Income || txs[0].Amount.Cents != 15050 {
		t.Fatalf("unexpected first transaction: %+v", txs[0])
	}
	if txs[0].OccurredAt.String() != "2024-03-15" {
		t.Fatalf("unexpected date: %s", txs[0].OccurredAt.String())
	}
	if len(store.txs) != 3 {
		t.Fatalf("store holds %d transactions, want 3", len(store.txs))
	}

	// The import triggers report generation before returning.
	if len(registry.reports) != 1 {
		t.Fatalf("expected 1 report after import, got %d", len(registry.reports))
	}
	if len(events.imports) != 1 || events.imports[0] != 3 {
		t.Fatalf("import event not published: %+v", events.imports)
	}
}

func TestImportCSVSkipsInvalidRows(t *testing.T) {
	svc, store, _, _ := newImportFixture(t)

	csvData := strings.Join([]string{
		"type,category,amount,date",
		"income,Sales,100,2024-01-15",
		"transfer,Savings,50,2024-01-16", // bad kind
		"income,,25,2024-01-17",          // empty category
		"expense,Rent,abc,2024-01-18",    // bad amount
		"expense,Rent,40",                // missing date defaults to today
	}, "\n")

	txs, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 valid transactions, got %d: %+v", len(txs), txs)
	}
	if len(store.txs) != 2 {
		t.Fatalf("store holds %d transactions, want 2", len(store.txs))
	}
}

func TestImportCSVHeaderAliases(t *testing.T) {
	svc, _, _, _ := newImportFixture(t)

	csvData := "Kind,Category,Amount\nincome,Sales,10\n"
	txs, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestImportCSVEmpty(t *testing.T) {
	svc, _, _, _ := newImportFixture(t)

	if _, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader("")); !errors.Is(err, ErrEmptyCSV) {
		t.Fatalf("expected ErrEmptyCSV, got %v", err)
	}
	if _, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader("type,category,amount\n")); !errors.Is(err, ErrEmptyCSV) {
		t.Fatalf("expected ErrEmptyCSV for header-only file, got %v", err)
	}
}

func TestImportCSVNoValidRows(t *testing.T) {
	svc, _, _, _ := newImportFixture(t)

	csvData := "type,category,amount\ntransfer,Savings,50\nfoo,Bar,xyz\n"
	if _, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader(csvData)); !errors.Is(err, ErrNoValidRows) {
		t.Fatalf("expected ErrNoValidRows, got %v", err)
	}
}

func TestImportCSVMissingColumns(t *testing.T) {
	svc, _, _, _ := newImportFixture(t)

	csvData := "category,amount\nSales,50\n"
	if _, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader(csvData)); !errors.Is(err, ErrNoValidRows) {
		t.Fatalf("expected ErrNoValidRows for missing type column, got %v", err)
	}
}

func TestImportCSVSurvivesReportFailure(t *testing.T) {
	svc, store, registry, _ := newImportFixture(t)
	registry.createErr = errors.New("registry down")

	csvData := "type,category,amount,date\nincome,Sales,100,2024-01-15\n"
	txs, err := svc.ImportCSV(context.Background(), "u1", strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import must not fail on report generation problems, got %v", err)
	}
	if len(txs) != 1 || len(store.txs) != 1 {
		t.Fatalf("transactions not stored: %+v", store.txs)
	}
	if len(registry.reports) != 0 {
		t.Fatalf("no registry entry may exist after a failed generation")
	}
}
