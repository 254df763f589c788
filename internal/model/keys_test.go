package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyNaming(t *testing.T) {
	ts := time.UnixMilli(1700000000000)

	assert.Equal(t, "bulk_books:user-1", PendingBatchKey("user-1"))
	assert.Equal(t, "bulk_status:user-1:1700000000000", BatchStatusKey("user-1", ts))
	assert.Equal(t, "bulk_error:user-1:1700000000000", BatchErrorKey("user-1", ts))
	assert.Equal(t, "report_error:user-1:1700000000000", ReportErrorKey("user-1", ts))
	assert.Equal(t, "user:user-1:books", BookListCacheKey("user-1"))
	assert.Equal(t, "user_email:user-1", UserEmailKey("user-1"))
}

func TestUserIDFromKey(t *testing.T) {
	tests := []struct {
		key    string
		userID string
		ok     bool
	}{
		{"bulk_books:user-1", "user-1", true},
		{"bulk_status:user-2:1700000000000", "user-2", true},
		{"user:user-3:books", "user-3", true},
		{"bulk_books:", "", false},
		{"nocolon", "", false},
	}

	for _, tt := range tests {
		userID, ok := UserIDFromKey(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.userID, userID, tt.key)
	}
}
