package services

import (
	"context"
	"errors"
	"fmt"

	"microerp/internal/core"
)

// ErrStoreUnavailable marks a failure to reach the transaction store.
// Summaries and forecasts are never partially computed.
var ErrStoreUnavailable = errors.New("transaction store unavailable")

// DefaultForecastWindow is the trailing moving-average window in months.
const DefaultForecastWindow = 3

// AnalyticsService computes financial summaries and the revenue forecast.
// Both read the full transaction set fresh on every call; nothing is cached.
type AnalyticsService struct {
	store  TransactionStore
	window int
}

func NewAnalyticsService(store TransactionStore, window int) *AnalyticsService {
	if window < 1 {
		window = DefaultForecastWindow
	}
	return &AnalyticsService{store: store, window: window}
}

// Summary aggregates total income, total expenses and net profit over the
// owner's full transaction set. An owner with no transactions gets zeros.
func (s *AnalyticsService) Summary(ctx context.Context, ownerID string) (core.FinancialSummary, error) {
	txs, err := s.store.ListTransactions(ctx, ownerID, false)
	if err != nil {
		return core.FinancialSummary{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return core.Summarize(txs), nil
}

// Forecast buckets the owner's income by calendar month and projects revenue
// with a trailing moving average. Fewer distinct months than the window size
// yields an empty forecast, not an error. The trailing (not centered) window
// lets the newest point double as this month's projection.
func (s *AnalyticsService) Forecast(ctx context.Context, ownerID string) ([]core.ForecastPoint, error) {
	txs, err := s.store.ListTransactions(ctx, ownerID, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return core.MovingAverage(core.MonthlyRevenue(txs), s.window), nil
}
