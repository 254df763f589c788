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
	"libris/internal/mailer"
	"libris/internal/model"
	"libris/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserDB struct {
	users map[string]*model.User
}

func (f *fakeUserDB) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return nil, database.ErrUserNotFound
}

type fakeRenderer struct {
	fail     bool
	rendered []model.BatchStatus
}

func (f *fakeRenderer) Render(status model.BatchStatus) ([]byte, error) {
	if f.fail {
		return nil, errors.New("render failed")
	}
	f.rendered = append(f.rendered, status)
	return []byte("%PDF-fake"), nil
}

type fakeMailer struct {
	fail bool
	sent []mailer.Message
}

func (f *fakeMailer) Send(msg mailer.Message) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

type reportFixture struct {
	job      *ReportJob
	store    *store.RedisStore
	srv      *miniredis.Miniredis
	users    *fakeUserDB
	renderer *fakeRenderer
	mailer   *fakeMailer
}

func newReportFixture(t *testing.T, defaultRecipient string) *reportFixture {
	t.Helper()

	srv := miniredis.RunT(t)
	st, err := store.NewRedisStore(config.RedisConfig{Address: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	users := &fakeUserDB{users: map[string]*model.User{}}
	renderer := &fakeRenderer{}
	m := &fakeMailer{}

	return &reportFixture{
		job:      NewReportJob(st, users, renderer, m, nil, defaultRecipient),
		store:    st,
		srv:      srv,
		users:    users,
		renderer: renderer,
		mailer:   m,
	}
}

func (f *reportFixture) putStatus(t *testing.T, status model.BatchStatus) string {
	t.Helper()
	payload, err := json.Marshal(status)
	require.NoError(t, err)
	key := model.BatchStatusKey(status.UserID, status.Timestamp)
	require.NoError(t, f.store.Set(context.Background(), key, payload, model.RecordTTL))
	return key
}

func (f *reportFixture) reportErrorKeys() []string {
	var keys []string
	for _, k := range f.srv.Keys() {
		if strings.HasPrefix(k, model.ReportErrorPrefix+":") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestReportDeliversAndDeletes(t *testing.T) {
	f := newReportFixture(t, "")
	ctx := context.Background()

	f.users.users["user-1"] = &model.User{ID: "user-1", Email: "reader@example.com"}
	key := f.putStatus(t, model.BatchStatus{
		UserID:       "user-1",
		TotalBooks:   3,
		SuccessCount: 2,
		FailureCount: 1,
		Failures:     []model.FailureDetail{{Index: 1, Title: "B", Error: "author is required"}},
		Timestamp:    time.Now(),
	})

	f.job.Run(ctx)

	require.Len(t, f.mailer.sent, 1)
	msg := f.mailer.sent[0]
	assert.Equal(t, "reader@example.com", msg.To)
	assert.Equal(t, []byte("%PDF-fake"), msg.Attachment)
	assert.Equal(t, "bulk-upload-report.pdf", msg.AttachmentName)
	assert.Contains(t, msg.HTMLBody, "2")

	_, err := f.store.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.reportErrorKeys())
}

func TestReportFailureLeavesStatusForRetry(t *testing.T) {
	f := newReportFixture(t, "")
	ctx := context.Background()

	f.users.users["user-1"] = &model.User{ID: "user-1", Email: "reader@example.com"}
	f.mailer.fail = true

	key := f.putStatus(t, model.BatchStatus{UserID: "user-1", TotalBooks: 1, SuccessCount: 1, Timestamp: time.Now()})

	f.job.Run(ctx)

	// The record is left in place for the next pass
	_, err := f.store.Get(ctx, key)
	assert.NoError(t, err)
	require.Len(t, f.reportErrorKeys(), 1)

	// A second failing pass produces a second, distinct error record
	time.Sleep(2 * time.Millisecond)
	f.job.Run(ctx)

	_, err = f.store.Get(ctx, key)
	assert.NoError(t, err)
	assert.Len(t, f.reportErrorKeys(), 2)

	// Error records carry the dead retry counter and the source key
	raw, err := f.store.Get(ctx, f.reportErrorKeys()[0])
	require.NoError(t, err)
	var reportErr model.ReportError
	require.NoError(t, json.Unmarshal(raw, &reportErr))
	assert.Equal(t, "user-1", reportErr.UserID)
	assert.Equal(t, key, reportErr.StatusKey)
	assert.Equal(t, 0, reportErr.Retries)

	// Delivery succeeds once the transport recovers
	f.mailer.fail = false
	f.job.Run(ctx)

	_, err = f.store.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Len(t, f.mailer.sent, 1)
}

func TestReportDropsMalformedStatus(t *testing.T) {
	f := newReportFixture(t, "")
	ctx := context.Background()

	badKey := model.BatchStatusPrefix + ":user-1:123"
	require.NoError(t, f.store.Set(ctx, badKey, []byte("not json"), 0))

	noUserKey := model.BatchStatusPrefix + ":user-2:456"
	require.NoError(t, f.store.Set(ctx, noUserKey, []byte(`{"totalBooks":2}`), 0))

	f.job.Run(ctx)

	_, err := f.store.Get(ctx, badKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.store.Get(ctx, noUserKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.reportErrorKeys())
}

func TestReportEmailResolutionOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("cached address when user record has none", func(t *testing.T) {
		f := newReportFixture(t, "fallback@example.com")
		require.NoError(t, f.store.Set(ctx, model.UserEmailKey("user-1"), []byte("cached@example.com"), 0))
		f.putStatus(t, model.BatchStatus{UserID: "user-1", TotalBooks: 1, Timestamp: time.Now()})

		f.job.Run(ctx)

		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, "cached@example.com", f.mailer.sent[0].To)
	})

	t.Run("default recipient as last resort", func(t *testing.T) {
		f := newReportFixture(t, "fallback@example.com")
		f.putStatus(t, model.BatchStatus{UserID: "user-1", TotalBooks: 1, Timestamp: time.Now()})

		f.job.Run(ctx)

		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, "fallback@example.com", f.mailer.sent[0].To)
	})

	t.Run("no default recipient fails the record", func(t *testing.T) {
		f := newReportFixture(t, "")
		key := f.putStatus(t, model.BatchStatus{UserID: "user-1", TotalBooks: 1, Timestamp: time.Now()})

		f.job.Run(ctx)

		assert.Empty(t, f.mailer.sent)
		assert.Len(t, f.reportErrorKeys(), 1)
		_, err := f.store.Get(ctx, key)
		assert.NoError(t, err)
	})
}

func TestReportZeroBookBatch(t *testing.T) {
	f := newReportFixture(t, "")
	ctx := context.Background()

	f.users.users["user-1"] = &model.User{ID: "user-1", Email: "reader@example.com"}
	key := f.putStatus(t, model.BatchStatus{UserID: "user-1", TotalBooks: 0, Timestamp: time.Now()})

	f.job.Run(ctx)

	// Rendering a zero-item batch must not error out
	require.Len(t, f.renderer.rendered, 1)
	require.Len(t, f.mailer.sent, 1)
	_, err := f.store.Get(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
