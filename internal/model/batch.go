package model

import "time"

// FailureDetail records one rejected submission within a batch. Index is
// the item's position in the original upload, not a post-filter position.
type FailureDetail struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Error string `json:"error"`
}

// BatchStatus summarizes one ingestion pass over one user's pending
// batch. Written once by the ingestion job, consumed and deleted by the
// report job.
type BatchStatus struct {
	UserID       string          `json:"userId"`
	TotalBooks   int             `json:"totalBooks"`
	SuccessCount int             `json:"successCount"`
	FailureCount int             `json:"failureCount"`
	Failures     []FailureDetail `json:"failures,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// SuccessRate returns the percentage of successfully ingested items.
// A batch with zero items reports 0 rather than dividing by zero.
func (s BatchStatus) SuccessRate() float64 {
	if s.TotalBooks == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalBooks) * 100
}

// BatchError is written when an entire batch fails to process, as
// opposed to individual item failures, which live inside BatchStatus.
// Error records are write-only: nothing in this service reads them back.
type BatchError struct {
	UserID    string    `json:"userId"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportError is written when rendering or sending a report fails. The
// status record it points at is left in place, so the report is retried
// on the next pass. Retries is initialized to zero and never consulted.
type ReportError struct {
	UserID    string    `json:"userId"`
	StatusKey string    `json:"statusKey"`
	Error     string    `json:"error"`
	Retries   int       `json:"retries"`
	Timestamp time.Time `json:"timestamp"`
}
