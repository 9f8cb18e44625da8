package core

import "sort"

// FinancialSummary is computed fresh per request and never persisted.
// Invariant: NetProfit = TotalIncome - TotalExpenses exactly.
type FinancialSummary struct {
	TotalIncome   Money
	TotalExpenses Money
	NetProfit     Money
}

// MonthlyRevenuePoint is the income sum for one calendar month. Only months
// with at least one income transaction appear; months are not zero-filled.
type MonthlyRevenuePoint struct {
	Month   string // "YYYY-MM"
	Revenue Money
}

// ForecastPoint is the trailing moving average ending at and including Month.
type ForecastPoint struct {
	Month            string
	PredictedRevenue Money
}

// Summarize computes the financial summary over a full transaction set.
// An empty set yields all-zero fields.
func Summarize(txs []Transaction) FinancialSummary {
	var s FinancialSummary
	for _, t := range txs {
		switch t.Kind {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
		case Expense:
			s.TotalExpenses.Cents += t.Amount.Cents
		}
	}
	s.NetProfit.Cents = s.TotalIncome.Cents - s.TotalExpenses.Cents
	return s
}

// MonthlyRevenue buckets income-kind amounts by calendar month and returns
// the points in chronological order. Months that saw only expenses are absent
// from the result, which can shift a moving-average window across a calendar
// gap; that matches the dashboard's historical behavior.
func MonthlyRevenue(txs []Transaction) []MonthlyRevenuePoint {
	buckets := make(map[string]int64)
	for _, t := range txs {
		if t.Kind != Income {
			continue
		}
		buckets[t.OccurredAt.Bucket()] += t.Amount.Cents
	}
	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	points := make([]MonthlyRevenuePoint, len(months))
	for i, m := range months {
		points[i] = MonthlyRevenuePoint{Month: m, Revenue: Money{Cents: buckets[m]}}
	}
	return points
}

// MovingAverage computes the trailing simple moving average over revenue
// points, one output per month from the window-th point onward. Averages are
// rounded half up to the nearest cent. Fewer points than the window size
// yields an empty result.
func MovingAverage(points []MonthlyRevenuePoint, window int) []ForecastPoint {
	if window < 1 || len(points) < window {
		return nil
	}
	out := make([]ForecastPoint, 0, len(points)-window+1)
	var sum int64
	for i, p := range points {
		sum += p.Revenue.Cents
		if i >= window {
			sum -= points[i-window].Revenue.Cents
		}
		if i >= window-1 {
			avg := (sum + int64(window)/2) / int64(window)
			out = append(out, ForecastPoint{Month: p.Month, PredictedRevenue: Money{Cents: avg}})
		}
	}
	return out
}
