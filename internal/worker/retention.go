// Package worker hosts the background retention job that keeps the report
// artifact directory from growing without bound.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"microerp/internal/amqp"
	"microerp/internal/core"
)

// ReportLister serves an owner's report registry, newest first.
type ReportLister interface {
	ListReports(ctx context.Context, ownerID string) ([]core.Report, error)
}

// RetentionWorker prunes old report artifacts whenever a new report lands.
// Only the files are removed; registry rows stay, the same drift the API
// already tolerates when a file disappears out of band.
type RetentionWorker struct {
	reports  ReportLister
	keepLast int
}

func NewRetentionWorker(reports ReportLister, keepLast int) *RetentionWorker {
	if keepLast < 1 {
		keepLast = 10
	}
	return &RetentionWorker{reports: reports, keepLast: keepLast}
}

// HandleReportGenerated processes a single report.generated event and
// removes artifacts beyond the keep-last window for that owner.
func (w *RetentionWorker) HandleReportGenerated(ctx context.Context, msg *amqp.ReportGeneratedMessage) error {
	slog.InfoContext(ctx, "Processing report event",
		"report_id", msg.ReportID,
		"owner_id", msg.OwnerID)

	reports, err := w.reports.ListReports(ctx, msg.OwnerID)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}

	if len(reports) <= w.keepLast {
		return nil
	}

	pruned := 0
	for _, rep := range reports[w.keepLast:] {
		if err := os.Remove(rep.FilePath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			slog.WarnContext(ctx, "Failed to remove report artifact",
				"report_id", rep.ID,
				"path", rep.FilePath,
				"error", err)
			continue
		}
		pruned++
	}

	if pruned > 0 {
		slog.InfoContext(ctx, "Pruned report artifacts",
			"owner_id", msg.OwnerID,
			"pruned", pruned,
			"kept", w.keepLast)
	}
	return nil
}
