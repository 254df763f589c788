package report

import (
	"bytes"
	"fmt"
	"libris/internal/model"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
)

// Renderer turns a batch status record into a paginated printable
// document.
type Renderer interface {
	Render(status model.BatchStatus) ([]byte, error)
}

// PDFRenderer renders batch status records as A4 PDF documents.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render produces the summary PDF for one batch. Failure blocks flow
// across pages through auto page breaks; every page footer shows
// "page X of Y".
func (r *PDFRenderer) Render(status model.BatchStatus) ([]byte, error) {
	reportID := uuid.New().ID()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Bulk Upload Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s    Report ID: %d",
		time.Now().Format(time.RFC1123), reportID), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	// Summary
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)

	summaryLine(pdf, "User ID", status.UserID)
	summaryLine(pdf, "Processed At", status.Timestamp.Format(time.RFC1123))
	summaryLine(pdf, "Total Books", fmt.Sprintf("%d", status.TotalBooks))
	summaryLine(pdf, "Successful", fmt.Sprintf("%d", status.SuccessCount))
	summaryLine(pdf, "Failed", fmt.Sprintf("%d", status.FailureCount))
	summaryLine(pdf, "Success Rate", fmt.Sprintf("%.2f%%", status.SuccessRate()))

	// Failure details, in original upload order
	if len(status.Failures) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Failed Items Details", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)

		for _, failure := range status.Failures {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(0, 6, fmt.Sprintf("Item #%d: %s", failure.Index, failure.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("Error: %s", failure.Error), "", "L", false)
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report pdf: %w", err)
	}

	return buf.Bytes(), nil
}

func summaryLine(pdf *gofpdf.Fpdf, label, value string) {
	pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}
