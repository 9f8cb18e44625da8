package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"microerp/internal/core"
	"microerp/internal/storage"
)

// fakeTransactionStore is an in-memory TransactionStore for service tests.
type fakeTransactionStore struct {
	mu        sync.Mutex
	txs       []core.Transaction
	listErr   error
	insertErr error
}

func (f *fakeTransactionStore) InsertTransaction(_ context.Context, t *core.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, *t)
	return nil
}

func (f *fakeTransactionStore) InsertTransactions(_ context.Context, txs []core.Transaction) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, txs...)
	return nil
}

func (f *fakeTransactionStore) ListTransactions(_ context.Context, ownerID string, newestFirst bool) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, t := range f.txs {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].OccurredAt.After(out[j].OccurredAt.Time)
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt.Time)
	})
	return out, nil
}

func (f *fakeTransactionStore) ListTransactionsPage(ctx context.Context, ownerID string, page, limit int) ([]core.Transaction, int, error) {
	all, err := f.ListTransactions(ctx, ownerID, true)
	if err != nil {
		return nil, 0, err
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, len(all), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

// fakeReportStore is an in-memory ReportStore that counts lookups so tests
// can assert no registry access happened.
type fakeReportStore struct {
	mu        sync.Mutex
	reports   []core.Report
	createErr error
	getCalls  int
}

func (f *fakeReportStore) CreateReport(_ context.Context, r *core.Report) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, *r)
	return nil
}

func (f *fakeReportStore) ListReports(_ context.Context, ownerID string) ([]core.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Report
	for i := len(f.reports) - 1; i >= 0; i-- { // newest first
		if f.reports[i].OwnerID == ownerID {
			out = append(out, f.reports[i])
		}
	}
	return out, nil
}

func (f *fakeReportStore) GetReport(_ context.Context, id string) (*core.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	for _, r := range f.reports {
		if r.ID == id {
			rep := r
			return &rep, nil
		}
	}
	return nil, fmt.Errorf("get report: %w", storage.ErrNotFound)
}

// fakeUserStore is an in-memory UserStore keyed by email.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]core.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]core.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return fmt.Errorf("create user: %w", storage.ErrConflict)
	}
	f.users[u.Email] = *u
	return nil
}

func (f *fakeUserStore) FindUserByEmail(_ context.Context, email string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("find user: %w", storage.ErrNotFound)
	}
	return &u, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu         sync.Mutex
	reports    []string
	imports    []int
	publishErr error
}

func (f *fakePublisher) PublishReportGenerated(_ context.Context, reportID, _ string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, reportID)
	return nil
}

func (f *fakePublisher) PublishTransactionsImported(_ context.Context, _ string, count int) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, count)
	return nil
}
