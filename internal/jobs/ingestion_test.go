package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"libris/internal/config"
	"libris/internal/database"
	"libris/internal/model"
	"libris/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBookDB implements database.BookDatabase in memory, simulating the
// global ISBN unique index.
type fakeBookDB struct {
	books []model.Book
	isbns map[string]bool
}

func newFakeBookDB() *fakeBookDB {
	return &fakeBookDB{isbns: map[string]bool{}}
}

func (f *fakeBookDB) CreateBook(_ context.Context, book *model.Book) error {
	if book.ISBN != "" {
		if f.isbns[book.ISBN] {
			return database.ErrDuplicateISBN
		}
		f.isbns[book.ISBN] = true
	}
	f.books = append(f.books, *book)
	return nil
}

func (f *fakeBookDB) GetBookByID(context.Context, string, string) (*model.Book, error) {
	return nil, database.ErrBookNotFound
}

func (f *fakeBookDB) GetBooksByUser(_ context.Context, userID string) ([]model.Book, error) {
	var out []model.Book
	for _, b := range f.books {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookDB) UpdateBook(context.Context, string, string, model.BookUpdate) (*model.Book, error) {
	return nil, database.ErrBookNotFound
}

func (f *fakeBookDB) DeleteBook(context.Context, string, string) error {
	return database.ErrBookNotFound
}

func newIngestionFixture(t *testing.T) (*IngestionJob, *store.RedisStore, *miniredis.Miniredis, *fakeBookDB) {
	t.Helper()

	srv := miniredis.RunT(t)
	st, err := store.NewRedisStore(config.RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	db := newFakeBookDB()
	return NewIngestionJob(st, db, nil), st, srv, db
}

func enqueueBatch(t *testing.T, st store.Store, userID string, submissions []model.BookSubmission) {
	t.Helper()
	payload, err := json.Marshal(submissions)
	require.NoError(t, err)
	require.NoError(t, st.Set(context.Background(), model.PendingBatchKey(userID), payload, 0))
}

func readStatus(t *testing.T, st store.Store, srv *miniredis.Miniredis, userID string) model.BatchStatus {
	t.Helper()

	keys := srv.Keys()
	var statusKey string
	for _, k := range keys {
		if strings.HasPrefix(k, model.BatchStatusPrefix+":"+userID+":") {
			statusKey = k
			break
		}
	}
	require.NotEmpty(t, statusKey, "no status record written for %s", userID)

	raw, err := st.Get(context.Background(), statusKey)
	require.NoError(t, err)

	var status model.BatchStatus
	require.NoError(t, json.Unmarshal(raw, &status))
	return status
}

func TestIngestionTalliesAndIndices(t *testing.T) {
	job, st, srv, db := newIngestionFixture(t)
	ctx := context.Background()

	// "same" already exists elsewhere in the catalog
	db.isbns["same"] = true

	enqueueBatch(t, st, "user-1", []model.BookSubmission{
		{Title: "A", Author: "X"},
		{Title: "", Author: "Y"},
		{Title: "C", Author: "Z", ISBN: "same"},
	})

	job.Run(ctx)

	status := readStatus(t, st, srv, "user-1")
	assert.Equal(t, 3, status.TotalBooks)
	assert.Equal(t, 1, status.SuccessCount)
	assert.Equal(t, 2, status.FailureCount)

	require.Len(t, status.Failures, 2)
	assert.Equal(t, 1, status.Failures[0].Index)
	assert.Equal(t, "title is required", status.Failures[0].Error)
	assert.Equal(t, 2, status.Failures[1].Index)
	assert.Equal(t, "C", status.Failures[1].Title)
	assert.Equal(t, database.ErrDuplicateISBN.Error(), status.Failures[1].Error)

	// Item 0 persisted
	require.Len(t, db.books, 1)
	assert.Equal(t, "A", db.books[0].Title)
}

func TestIngestionDeletesPendingKey(t *testing.T) {
	job, st, _, _ := newIngestionFixture(t)
	ctx := context.Background()

	// Every item fails validation; the batch is still consumed
	enqueueBatch(t, st, "user-1", []model.BookSubmission{
		{Title: "", Author: ""},
		{Title: "", Author: ""},
	})

	job.Run(ctx)

	_, err := st.Get(ctx, model.PendingBatchKey("user-1"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Re-running over the absent key is a no-op
	job.Run(ctx)
}

func TestIngestionStatusTTL(t *testing.T) {
	job, st, srv, _ := newIngestionFixture(t)

	enqueueBatch(t, st, "user-1", []model.BookSubmission{{Title: "A", Author: "X"}})
	job.Run(context.Background())

	var statusKey string
	for _, k := range srv.Keys() {
		if strings.HasPrefix(k, model.BatchStatusPrefix+":") {
			statusKey = k
		}
	}
	require.NotEmpty(t, statusKey)
	assert.Equal(t, model.RecordTTL, srv.TTL(statusKey))
}

func TestIngestionDropsMalformedBatch(t *testing.T) {
	job, st, srv, _ := newIngestionFixture(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, model.PendingBatchKey("user-1"), []byte("not json"), 0))
	require.NoError(t, st.Set(ctx, model.PendingBatchKey("user-2"), []byte("[]"), 0))

	job.Run(ctx)

	_, err := st.Get(ctx, model.PendingBatchKey("user-1"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(ctx, model.PendingBatchKey("user-2"))
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Silent drop: no status record for either user
	for _, k := range srv.Keys() {
		assert.False(t, strings.HasPrefix(k, model.BatchStatusPrefix+":"), "unexpected status record %s", k)
	}
}

func TestIngestionInvalidatesBookListCache(t *testing.T) {
	job, st, _, _ := newIngestionFixture(t)
	ctx := context.Background()

	cacheKey := model.BookListCacheKey("user-1")
	require.NoError(t, st.Set(ctx, cacheKey, []byte("[]"), time.Hour))

	enqueueBatch(t, st, "user-1", []model.BookSubmission{{Title: "A", Author: "X"}})
	job.Run(ctx)

	_, err := st.Get(ctx, cacheKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// failingStatusStore fails writes into the status namespace, simulating
// the store becoming unreachable mid-batch.
type failingStatusStore struct {
	store.Store
}

func (f *failingStatusStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.HasPrefix(key, model.BatchStatusPrefix+":") {
		return errors.New("store unreachable")
	}
	return f.Store.Set(ctx, key, value, ttl)
}

func TestIngestionRecordsBatchError(t *testing.T) {
	_, st, srv, db := newIngestionFixture(t)
	ctx := context.Background()

	wrapped := &failingStatusStore{Store: st}
	job := NewIngestionJob(wrapped, db, nil)

	enqueueBatch(t, st, "user-1", []model.BookSubmission{{Title: "A", Author: "X"}})
	job.Run(ctx)

	var errorKey string
	for _, k := range srv.Keys() {
		if strings.HasPrefix(k, model.BatchErrorPrefix+":user-1:") {
			errorKey = k
		}
	}
	require.NotEmpty(t, errorKey, "expected a batch error record")
	assert.Equal(t, model.RecordTTL, srv.TTL(errorKey))

	raw, err := st.Get(ctx, errorKey)
	require.NoError(t, err)
	var batchErr model.BatchError
	require.NoError(t, json.Unmarshal(raw, &batchErr))
	assert.Equal(t, "user-1", batchErr.UserID)
	assert.Equal(t, "store unreachable", batchErr.Error)

	// The pending batch survives a whole-batch failure
	_, err = st.Get(ctx, model.PendingBatchKey("user-1"))
	assert.NoError(t, err)
}
