package http

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"microerp/internal/core"
)

type summaryJSON struct {
	TotalIncome   float64 `json:"totalIncome"`
	TotalExpenses float64 `json:"totalExpenses"`
	NetProfit     float64 `json:"netProfit"`
}

type forecastPointJSON struct {
	Month            string  `json:"month"`
	PredictedRevenue float64 `json:"predictedRevenue"`
}

type reportJSON struct {
	ID        string `json:"id"`
	FilePath  string `json:"filePath"`
	CreatedAt string `json:"createdAt"`
}

func toReportJSON(r core.Report) reportJSON {
	return reportJSON{
		ID:        r.ID,
		FilePath:  r.FilePath,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	if cached, ok := s.summaryCache.Get(owner); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	sum, err := s.deps.Analytics.Summary(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := summaryJSON{
		TotalIncome:   sum.TotalIncome.Dollars(),
		TotalExpenses: sum.TotalExpenses.Dollars(),
		NetProfit:     sum.NetProfit.Dollars(),
	}
	s.summaryCache.Set(owner, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	owner := ownerFromContext(r.Context())
	if cached, ok := s.forecastCache.Get(owner); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	points, err := s.deps.Analytics.Forecast(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]forecastPointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, forecastPointJSON{
			Month:            p.Month,
			PredictedRevenue: p.PredictedRevenue.Dollars(),
		})
	}
	s.forecastCache.Set(owner, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Reports.Generate(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportJSON(*report))
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.deps.Reports.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]reportJSON, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportJSON(rep))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("reportID")

	report, body, err := s.deps.Reports.Download(r.Context(), id, ownerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(report.FilePath)))

	// Headers are already out; a copy failure here is a delivery failure,
	// not something we can report to the client anymore.
	if _, err := io.Copy(w, body); err != nil {
		slog.ErrorContext(r.Context(), "Report delivery failed", "report_id", report.ID, "error", err)
	}
}
