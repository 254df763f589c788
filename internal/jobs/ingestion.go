package jobs

import (
	"context"
	"encoding/json"
	"libris/internal/database"
	"libris/internal/events"
	"libris/internal/model"
	"libris/internal/store"
	"time"

	"github.com/rs/zerolog/log"
)

// IngestionJob drains pending bulk-upload batches from the shared
// store, persists each submission individually, and records a per-batch
// status record for the report job to pick up. The pending key is
// deleted after one pass regardless of how many items failed: batches
// are never retried, and failures are visible only through the status
// record.
type IngestionJob struct {
	store  store.Store
	books  database.BookDatabase
	events events.Publisher
}

// NewIngestionJob creates the ingestion job. publisher may be nil, in
// which case batch-completed events are skipped.
func NewIngestionJob(st store.Store, books database.BookDatabase, publisher events.Publisher) *IngestionJob {
	return &IngestionJob{
		store:  st,
		books:  books,
		events: publisher,
	}
}

func (j *IngestionJob) Name() string {
	return "ingestion"
}

// Run performs one pass over every pending batch. One user's failure
// must not abort the run: whole-batch errors are recorded per user and
// the loop continues with the next key.
func (j *IngestionJob) Run(ctx context.Context) {
	keys, err := j.store.Scan(ctx, model.PendingBatchPrefix+":")
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan pending batches")
		return
	}

	if len(keys) == 0 {
		return
	}

	log.Info().Int("batches", len(keys)).Msg("Processing pending batches")

	for _, key := range keys {
		userID, ok := model.UserIDFromKey(key)
		if !ok {
			log.Warn().Str("key", key).Msg("Skipping malformed pending batch key")
			continue
		}

		if err := j.processBatch(ctx, key, userID); err != nil {
			log.Error().
				Err(err).
				Str("userId", userID).
				Str("key", key).
				Msg("Batch processing failed")
			j.recordBatchError(ctx, userID, err)
		}
	}
}

func (j *IngestionJob) processBatch(ctx context.Context, key, userID string) error {
	raw, err := j.store.Get(ctx, key)
	if err == store.ErrNotFound {
		// Raced with a concurrent deleter; tolerated silently
		return nil
	} else if err != nil {
		return err
	}

	var submissions []model.BookSubmission
	if err := json.Unmarshal(raw, &submissions); err != nil || len(submissions) == 0 {
		// Malformed or empty payloads are dropped without a status
		// record; the user never hears about them
		log.Warn().
			Str("key", key).
			Msg("Dropping malformed or empty pending batch")
		if delErr := j.store.Delete(ctx, key); delErr != nil {
			log.Error().Err(delErr).Str("key", key).Msg("Failed to delete malformed batch")
		}
		return nil
	}

	status := model.BatchStatus{
		UserID:     userID,
		TotalBooks: len(submissions),
		Timestamp:  time.Now(),
	}

	for i, submission := range submissions {
		if err := submission.Validate(); err != nil {
			status.FailureCount++
			status.Failures = append(status.Failures, model.FailureDetail{
				Index: i,
				Title: submission.Title,
				Error: err.Error(),
			})
			continue
		}

		// Persistence errors, including duplicate ISBNs, are captured
		// per item and never abort the batch
		if err := j.books.CreateBook(ctx, submission.ToBook(userID)); err != nil {
			status.FailureCount++
			status.Failures = append(status.Failures, model.FailureDetail{
				Index: i,
				Title: submission.Title,
				Error: err.Error(),
			})
			continue
		}

		status.SuccessCount++
	}

	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}

	statusKey := model.BatchStatusKey(userID, status.Timestamp)
	if err := j.store.Set(ctx, statusKey, payload, model.RecordTTL); err != nil {
		return err
	}

	// The pending batch is consumed exactly once, even when every item
	// in it failed
	if err := j.store.Delete(ctx, key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to delete pending batch")
	}

	if status.SuccessCount > 0 {
		// New books make the cached list stale
		if err := j.store.Delete(ctx, model.BookListCacheKey(userID)); err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("Failed to invalidate book list cache")
		}
	}

	if j.events != nil {
		if err := j.events.Publish(events.BatchCompleted, userID, status); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to publish batch completed event")
		}
	}

	log.Info().
		Str("userId", userID).
		Int("total", status.TotalBooks).
		Int("success", status.SuccessCount).
		Int("failed", status.FailureCount).
		Msg("Batch processed")

	return nil
}

func (j *IngestionJob) recordBatchError(ctx context.Context, userID string, cause error) {
	batchErr := model.BatchError{
		UserID:    userID,
		Error:     cause.Error(),
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(batchErr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal batch error record")
		return
	}

	key := model.BatchErrorKey(userID, batchErr.Timestamp)
	if err := j.store.Set(ctx, key, payload, model.RecordTTL); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to write batch error record")
	}
}
