package services

import (
	"context"
	"errors"
	"testing"

	"microerp/internal/core"
)

func seedTx(store *fakeTransactionStore, owner string, kind core.Kind, cents int64, year, month, day int) {
	store.txs = append(store.txs, core.Transaction{
		ID:         owner + "-" + core.NewDate(year, month, day).String(),
		OwnerID:    owner,
		Kind:       kind,
		Category:   "General",
		Amount:     core.Money{Cents: cents},
		OccurredAt: core.NewDate(year, month, day),
	})
}

func TestSummaryMixedKinds(t *testing.T) {
	store := &fakeTransactionStore{}
	seedTx(store, "u1", core.Income, 5000, 2024, 1, 10)
	seedTx(store, "u1", core.Expense, 2000, 2024, 1, 12)
	seedTx(store, "other", core.Income, 999999, 2024, 1, 1) // different owner

	svc := NewAnalyticsService(store, DefaultForecastWindow)
	s, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.TotalIncome.Cents != 5000 || s.TotalExpenses.Cents != 2000 || s.NetProfit.Cents != 3000 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSummaryNoTransactions(t *testing.T) {
	svc := NewAnalyticsService(&fakeTransactionStore{}, DefaultForecastWindow)
	s, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("empty set is not an error, got %v", err)
	}
	if s.TotalIncome.Cents != 0 || s.TotalExpenses.Cents != 0 || s.NetProfit.Cents != 0 {
		t.Fatalf("expected zeros, got %+v", s)
	}
}

func TestSummaryStoreUnavailable(t *testing.T) {
	store := &fakeTransactionStore{listErr: errors.New("connection refused")}
	svc := NewAnalyticsService(store, DefaultForecastWindow)
	if _, err := svc.Summary(context.Background(), "u1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestForecastFourMonths(t *testing.T) {
	// 100, 200, 300, 400 over four months, window 3:
	// [{2024-03, 200.00}, {2024-04, 300.00}].
	store := &fakeTransactionStore{}
	seedTx(store, "u1", core.Income, 10000, 2024, 1, 15)
	seedTx(store, "u1", core.Income, 20000, 2024, 2, 15)
	seedTx(store, "u1", core.Income, 30000, 2024, 3, 15)
	seedTx(store, "u1", core.Income, 40000, 2024, 4, 15)

	svc := NewAnalyticsService(store, 3)
	points, err := svc.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d: %+v", len(points), points)
	}
	if points[0].Month != "2024-03" || points[0].PredictedRevenue.Dollars() != 200.00 {
		t.Fatalf("unexpected first point: %+v", points[0])
	}
	if points[1].Month != "2024-04" || points[1].PredictedRevenue.Dollars() != 300.00 {
		t.Fatalf("unexpected second point: %+v", points[1])
	}
}

func TestForecastInsufficientMonths(t *testing.T) {
	store := &fakeTransactionStore{}
	seedTx(store, "u1", core.Income, 10000, 2024, 1, 15)
	seedTx(store, "u1", core.Income, 20000, 2024, 2, 15)

	svc := NewAnalyticsService(store, 3)
	points, err := svc.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("insufficient data is not an error, got %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty forecast, got %+v", points)
	}
}

func TestForecastIgnoresExpenses(t *testing.T) {
	// February has expenses only, so it never enters the bucket map and the
	// window slides across the calendar gap.
	store := &fakeTransactionStore{}
	seedTx(store, "u1", core.Income, 10000, 2024, 1, 15)
	seedTx(store, "u1", core.Expense, 50000, 2024, 2, 15)
	seedTx(store, "u1", core.Income, 20000, 2024, 3, 15)
	seedTx(store, "u1", core.Income, 30000, 2024, 4, 15)

	svc := NewAnalyticsService(store, 3)
	points, err := svc.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d: %+v", len(points), points)
	}
	if points[0].Month != "2024-04" || points[0].PredictedRevenue.Cents != 20000 {
		t.Fatalf("unexpected point: %+v", points[0])
	}
}

func TestForecastIdempotent(t *testing.T) {
	store := &fakeTransactionStore{}
	seedTx(store, "u1", core.Income, 12345, 2024, 1, 3)
	seedTx(store, "u1", core.Income, 678, 2024, 2, 4)
	seedTx(store, "u1", core.Income, 90011, 2024, 3, 5)

	svc := NewAnalyticsService(store, 3)
	first, err := svc.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	second, err := svc.Forecast(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("length differs across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("point %d differs across calls: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNewAnalyticsServiceWindowDefault(t *testing.T) {
	svc := NewAnalyticsService(&fakeTransactionStore{}, 0)
	if svc.window != DefaultForecastWindow {
		t.Fatalf("window = %d, want %d", svc.window, DefaultForecastWindow)
	}
}
