package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"microerp/internal/core"
	"microerp/internal/services"
)

type transactionJSON struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:       t.ID,
		Type:     string(t.Kind),
		Category: t.Category,
		Amount:   t.Amount.Dollars(),
		Date:     t.OccurredAt.String(),
	}
}

type addTransactionRequest struct {
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
}

type listTransactionsResponse struct {
	Data        []transactionJSON `json:"data"`
	Total       int               `json:"total"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
}

type uploadResponse struct {
	Imported int `json:"imported"`
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	owner := ownerFromContext(r.Context())
	tx, err := s.deps.Transactions.Add(r.Context(), owner, services.NewTransaction{
		Kind:     req.Type,
		Category: req.Category,
		Amount:   req.Amount,
		Date:     req.Date,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateAnalytics(owner)
	writeJSON(w, http.StatusCreated, toTransactionJSON(*tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	if limit > services.MaxPageLimit {
		limit = services.MaxPageLimit
	}

	txs, total, err := s.deps.Transactions.List(r.Context(), ownerFromContext(r.Context()), page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		data = append(data, toTransactionJSON(t))
	}

	writeJSON(w, http.StatusOK, listTransactionsResponse{
		Data:        data,
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
	})
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	// 10 MB cap keeps a runaway upload from exhausting memory.
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	owner := ownerFromContext(r.Context())
	imported, err := s.deps.Importer.ImportCSV(r.Context(), owner, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.invalidateAnalytics(owner)
	writeJSON(w, http.StatusCreated, uploadResponse{Imported: len(imported)})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
