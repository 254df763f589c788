package report

import (
	"fmt"
	"libris/internal/model"
	"time"
)

// EmailSubject builds the message subject for one batch report.
func EmailSubject(status model.BatchStatus) string {
	if status.FailureCount > 0 {
		return fmt.Sprintf("Bulk upload report: %d of %d books imported", status.SuccessCount, status.TotalBooks)
	}
	return fmt.Sprintf("Bulk upload report: all %d books imported", status.TotalBooks)
}

// EmailBody builds the HTML body summarizing the same counts as the
// attached PDF, styled green for an all-success batch and red when any
// item failed.
func EmailBody(status model.BatchStatus) string {
	accent := "#2e7d32"
	headline := "All books were imported successfully."
	if status.FailureCount > 0 {
		accent = "#c62828"
		headline = "Some books could not be imported. See the attached report for details."
	}

	return fmt.Sprintf(`<html>
<body style="font-family: Helvetica, Arial, sans-serif; color: #333;">
  <h2 style="color: %s;">Bulk Upload Report</h2>
  <p>%s</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Processed at</b></td><td>%s</td></tr>
    <tr><td><b>Total books</b></td><td>%d</td></tr>
    <tr><td><b>Successful</b></td><td>%d</td></tr>
    <tr><td><b>Failed</b></td><td>%d</td></tr>
    <tr><td><b>Success rate</b></td><td>%.2f%%</td></tr>
  </table>
  <p>The full report is attached as a PDF.</p>
</body>
</html>`,
		accent,
		headline,
		status.Timestamp.Format(time.RFC1123),
		status.TotalBooks,
		status.SuccessCount,
		status.FailureCount,
		status.SuccessRate(),
	)
}
