package model

import (
	"fmt"
	"strings"
	"time"
)

// Key namespaces in the shared store. All keys are colon-delimited with
// the user id as the second segment.
const (
	PendingBatchPrefix = "bulk_books"
	BatchStatusPrefix  = "bulk_status"
	BatchErrorPrefix   = "bulk_error"
	ReportErrorPrefix  = "report_error"
)

// Lifetimes of store records.
const (
	// RecordTTL bounds how long status and error records survive
	// unconsumed.
	RecordTTL = 24 * time.Hour

	// BookListCacheTTL bounds a cached per-user book list.
	BookListCacheTTL = time.Hour
)

// PendingBatchKey is where the producer parks a user's bulk upload.
func PendingBatchKey(userID string) string {
	return fmt.Sprintf("%s:%s", PendingBatchPrefix, userID)
}

// BatchStatusKey names the outcome record of one ingestion pass. The
// trailing epoch-millis segment keeps successive batches distinct.
func BatchStatusKey(userID string, ts time.Time) string {
	return fmt.Sprintf("%s:%s:%d", BatchStatusPrefix, userID, ts.UnixMilli())
}

// BatchErrorKey names a whole-batch failure record.
func BatchErrorKey(userID string, ts time.Time) string {
	return fmt.Sprintf("%s:%s:%d", BatchErrorPrefix, userID, ts.UnixMilli())
}

// ReportErrorKey names a report delivery failure record.
func ReportErrorKey(userID string, ts time.Time) string {
	return fmt.Sprintf("%s:%s:%d", ReportErrorPrefix, userID, ts.UnixMilli())
}

// BookListCacheKey names the cached snapshot of a user's book list.
func BookListCacheKey(userID string) string {
	return fmt.Sprintf("user:%s:books", userID)
}

// UserEmailKey names the cached contact address for a user. Its TTL is
// managed by whoever writes it.
func UserEmailKey(userID string) string {
	return fmt.Sprintf("user_email:%s", userID)
}

// UserIDFromKey extracts the user id segment from any of the namespaced
// keys above. Returns false for keys that do not carry one.
func UserIDFromKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
