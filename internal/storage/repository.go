// Package storage implements the durable document collection behind the
// tracker: users, transactions and the report registry, all in a single
// SQLite database with embedded migrations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"microerp/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint is violated.
	ErrConflict = errors.New("already exists")
)

const timeFormat = time.RFC3339Nano

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts a new user. The caller sets ID; CreatedAt is stamped
// here. A duplicate email yields ErrConflict.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt.Format(timeFormat))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("create user: %w", ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindUserByEmail(ctx context.Context, email string) (*core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find user by email: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	u.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse user created_at %q: %w", createdAt, err)
	}
	return &u, nil
}

// InsertTransaction stores a single transaction. Transactions are immutable:
// there is no update or delete counterpart.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, kind, category, amount_cents, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, string(t.Kind), t.Category, t.Amount.Cents,
		t.OccurredAt.String(), time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// InsertTransactions stores a batch in one database transaction so a bulk
// import is applied completely or not at all.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx,
		`INSERT INTO transactions (id, owner_id, kind, category, amount_cents, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(timeFormat)
	for i := range txs {
		t := &txs[i]
		if _, err := stmt.ExecContext(ctx, t.ID, t.OwnerID, string(t.Kind), t.Category,
			t.Amount.Cents, t.OccurredAt.String(), now); err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// ListTransactions returns the owner's full transaction set, oldest or newest
// first by occurrence date.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string, newestFirst bool) ([]core.Transaction, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, kind, category, amount_cents, occurred_at
		 FROM transactions WHERE owner_id = ? ORDER BY occurred_at `+order+`, created_at `+order,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// ListTransactionsPage returns one page of the owner's transactions, newest
// first, plus the total row count for pagination.
func (r *SQLiteRepository) ListTransactionsPage(ctx context.Context, ownerID string, page, limit int) ([]core.Transaction, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, kind, category, amount_cents, occurred_at
		 FROM transactions WHERE owner_id = ?
		 ORDER BY occurred_at DESC, created_at DESC LIMIT ? OFFSET ?`,
		ownerID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions page: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		var (
			t          core.Transaction
			kind       string
			occurredAt string
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &kind, &t.Category, &t.Amount.Cents, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		d, err := core.ParseDate(occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", occurredAt, err)
		}
		t.OccurredAt = d
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CreateReport appends a registry entry for a generated artifact. The
// registry is append-only; entries are never mutated.
func (r *SQLiteRepository) CreateReport(ctx context.Context, rep *core.Report) error {
	rep.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, owner_id, file_path, created_at) VALUES (?, ?, ?, ?)`,
		rep.ID, rep.OwnerID, rep.FilePath, rep.CreatedAt.Format(timeFormat))
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// ListReports returns the owner's report artifacts, newest first.
func (r *SQLiteRepository) ListReports(ctx context.Context, ownerID string) ([]core.Report, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, file_path, created_at FROM reports
		 WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []core.Report
	for rows.Next() {
		rep, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func (r *SQLiteRepository) GetReport(ctx context.Context, id string) (*core.Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, file_path, created_at FROM reports WHERE id = ?`, id)
	rep, err := scanReport(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get report: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func scanReport(scan func(...any) error) (*core.Report, error) {
	var (
		rep       core.Report
		createdAt string
	)
	if err := scan(&rep.ID, &rep.OwnerID, &rep.FilePath, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse report created_at %q: %w", createdAt, err)
	}
	rep.CreatedAt = t
	return &rep, nil
}
