// Package services holds the business logic between the HTTP layer and
// storage: authentication, aggregation, forecasting, CSV import and the
// report generation pipeline.
package services

import (
	"context"

	"microerp/internal/core"
)

// TransactionStore is the transaction query/write capability the services
// consume. Implemented by storage.SQLiteRepository.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, t *core.Transaction) error
	InsertTransactions(ctx context.Context, txs []core.Transaction) error
	ListTransactions(ctx context.Context, ownerID string, newestFirst bool) ([]core.Transaction, error)
	ListTransactionsPage(ctx context.Context, ownerID string, page, limit int) ([]core.Transaction, int, error)
}

// ReportStore is the registry capability for report artifact metadata.
// Absent rows are reported as storage.ErrNotFound.
type ReportStore interface {
	CreateReport(ctx context.Context, r *core.Report) error
	ListReports(ctx context.Context, ownerID string) ([]core.Report, error)
	GetReport(ctx context.Context, id string) (*core.Report, error)
}

// UserStore is the account capability behind authentication.
type UserStore interface {
	CreateUser(ctx context.Context, u *core.User) error
	FindUserByEmail(ctx context.Context, email string) (*core.User, error)
}

// EventPublisher pushes data-change notifications to interested consumers.
// A nil publisher disables notifications; publishes are best effort and never
// fail the triggering operation.
type EventPublisher interface {
	PublishReportGenerated(ctx context.Context, reportID, ownerID string) error
	PublishTransactionsImported(ctx context.Context, ownerID string, count int) error
}
