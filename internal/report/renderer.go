// Package report renders the downloadable PDF artifact for a transaction set.
package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"microerp/internal/core"
)

const (
	titleText  = "Financial Report"
	lineHeight = 7.0
)

// Render produces the report document: a title line followed by one line per
// transaction in the order given (callers pass newest first). Pagination is
// automatic; long sets flow onto additional pages.
func Render(txs []core.Transaction) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(0, 10, titleText)
	doc.Ln(14)

	doc.SetFont("Helvetica", "", 11)
	for _, t := range txs {
		doc.Cell(0, lineHeight, Line(t))
		doc.Ln(lineHeight)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Line formats a single transaction entry:
// "<date> - <category> - <KIND>: $<amount>".
func Line(t core.Transaction) string {
	return fmt.Sprintf("%s - %s - %s: $%.2f",
		t.OccurredAt.String(), t.Category, strings.ToUpper(string(t.Kind)), t.Amount.Dollars())
}
