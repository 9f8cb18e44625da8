package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"microerp/internal/core"
	"microerp/internal/report"
	"microerp/internal/storage"
)

var (
	// ErrEmptyDataset means the owner has no transactions to report on.
	// A user condition, not a system failure.
	ErrEmptyDataset = errors.New("no transactions to report on")
	// ErrInvalidReportID marks a malformed report identifier.
	ErrInvalidReportID = errors.New("invalid report id")
	// ErrReportNotFound marks a registry miss.
	ErrReportNotFound = errors.New("report not found")
	// ErrReportFileMissing marks registry/storage drift: a registry entry
	// whose backing file has been removed out of band.
	ErrReportFileMissing = errors.New("report file missing")
)

// ReportService runs the PDF generation pipeline and serves the registry.
type ReportService struct {
	transactions TransactionStore
	reports      ReportStore
	events       EventPublisher
	dir          string
}

func NewReportService(transactions TransactionStore, reports ReportStore, events EventPublisher, dir string) *ReportService {
	return &ReportService{
		transactions: transactions,
		reports:      reports,
		events:       events,
		dir:          dir,
	}
}

// Generate renders the owner's transactions into a PDF, writes it to durable
// storage and registers the artifact. The file write completes (flushed and
// closed) before the registry row is written, so the registry never points at
// a truncated file. Artifact names carry a random token; concurrent
// generations for the same owner cannot collide.
func (s *ReportService) Generate(ctx context.Context, ownerID string) (*core.Report, error) {
	txs, err := s.transactions.ListTransactions(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, ErrEmptyDataset
	}

	data, err := report.Render(txs)
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, "report_"+id+".pdf")
	if err := writeArtifact(path, data); err != nil {
		return nil, fmt.Errorf("write report file: %w", err)
	}

	rep := &core.Report{ID: id, OwnerID: ownerID, FilePath: path}
	if err := s.reports.CreateReport(ctx, rep); err != nil {
		// The registry row failed; remove the file so no orphan artifact
		// lingers without metadata.
		if rmErr := os.Remove(path); rmErr != nil {
			slog.ErrorContext(ctx, "Failed to remove orphaned report file", "path", path, "error", rmErr)
		}
		return nil, fmt.Errorf("register report: %w", err)
	}

	slog.InfoContext(ctx, "Report generated",
		"report_id", rep.ID,
		"owner_id", ownerID,
		"transactions", len(txs),
		"path", path)

	if s.events != nil {
		if err := s.events.PublishReportGenerated(ctx, rep.ID, ownerID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish report event", "report_id", rep.ID, "error", err)
		}
	}
	return rep, nil
}

// GenerateQuiet runs Generate and swallows the outcome. Used as a side effect
// of bulk import: the pipeline completes before the caller's response returns,
// but its failure must never fail or abort the import.
func (s *ReportService) GenerateQuiet(ctx context.Context, ownerID string) {
	rep, err := s.Generate(ctx, ownerID)
	switch {
	case errors.Is(err, ErrEmptyDataset):
		slog.InfoContext(ctx, "Skipped report generation, no transactions", "owner_id", ownerID)
	case err != nil:
		slog.ErrorContext(ctx, "Report generation failed", "owner_id", ownerID, "error", err)
	default:
		slog.InfoContext(ctx, "Report generated after import", "owner_id", ownerID, "report_id", rep.ID)
	}
}

// List returns the owner's report artifacts, newest first.
func (s *ReportService) List(ctx context.Context, ownerID string) ([]core.Report, error) {
	reports, err := s.reports.ListReports(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Download locates a stored artifact and opens it for streaming. The id is
// validated before any registry lookup; ownership and on-disk existence are
// checked before the file is opened. The caller closes the reader.
func (s *ReportService) Download(ctx context.Context, id, ownerID string) (*core.Report, io.ReadCloser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, ErrInvalidReportID
	}

	rep, err := s.reports.GetReport(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, ErrReportNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("look up report: %w", err)
	}
	// Ownership is enforced here; a miss is indistinguishable from a
	// nonexistent report so foreign ids leak nothing.
	if rep.OwnerID != ownerID {
		return nil, nil, ErrReportNotFound
	}

	if _, err := os.Stat(rep.FilePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrReportFileMissing
		}
		return nil, nil, fmt.Errorf("stat report file: %w", err)
	}

	f, err := os.Open(rep.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open report file: %w", err)
	}
	return rep, f, nil
}

// writeArtifact writes data to path and guarantees it is flushed and closed
// before returning. A partial write leaves no file behind.
func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("sync file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}
