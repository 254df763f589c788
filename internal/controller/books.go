package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"libris/internal/database"
	"libris/internal/events"
	"libris/internal/model"
	"libris/internal/store"

	"github.com/rs/zerolog/log"
)

// BookController handles catalog operations for a single user's books,
// keeping the cached book list consistent with every mutation.
type BookController interface {
	// ListBooks returns a user's books, cache first
	ListBooks(ctx context.Context, userID string) ([]model.Book, error)

	// GetBook returns one book owned by the user
	GetBook(ctx context.Context, userID, bookID string) (*model.Book, error)

	// CreateBook validates and persists one submission
	CreateBook(ctx context.Context, userID string, submission model.BookSubmission) (*model.Book, error)

	// UpdateBook applies a partial update
	UpdateBook(ctx context.Context, userID, bookID string, update model.BookUpdate) (*model.Book, error)

	// DeleteBook removes one book
	DeleteBook(ctx context.Context, userID, bookID string) error

	// EnqueueBulkUpload parks a batch of submissions for the ingestion
	// job to pick up
	EnqueueBulkUpload(ctx context.Context, userID string, submissions []model.BookSubmission) error
}

type bookController struct {
	db     database.Database
	store  store.Store
	events events.Publisher
}

// NewBookController creates a book controller. publisher may be nil to
// disable event publication.
func NewBookController(db database.Database, st store.Store, publisher events.Publisher) BookController {
	return &bookController{
		db:     db,
		store:  st,
		events: publisher,
	}
}

// ListBooks serves from the cached snapshot when present; a miss reads
// the database and repopulates the cache for an hour.
func (c *bookController) ListBooks(ctx context.Context, userID string) ([]model.Book, error) {
	cacheKey := model.BookListCacheKey(userID)

	if cached, err := c.store.Get(ctx, cacheKey); err == nil {
		var books []model.Book
		if err := json.Unmarshal(cached, &books); err == nil {
			return books, nil
		}
		// Unreadable cache entries are treated as misses
		log.Warn().Str("userId", userID).Msg("Discarding unreadable cached book list")
	}

	books, err := c.db.GetBooksByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(books); err == nil {
		if err := c.store.Set(ctx, cacheKey, payload, model.BookListCacheTTL); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("Failed to cache book list")
		}
	}

	return books, nil
}

func (c *bookController) GetBook(ctx context.Context, userID, bookID string) (*model.Book, error) {
	return c.db.GetBookByID(ctx, userID, bookID)
}

func (c *bookController) CreateBook(ctx context.Context, userID string, submission model.BookSubmission) (*model.Book, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}

	book := submission.ToBook(userID)
	if err := c.db.CreateBook(ctx, book); err != nil {
		return nil, err
	}

	c.invalidate(ctx, userID)
	c.publish(events.BookCreated, userID, book)

	return book, nil
}

func (c *bookController) UpdateBook(ctx context.Context, userID, bookID string, update model.BookUpdate) (*model.Book, error) {
	book, err := c.db.UpdateBook(ctx, userID, bookID, update)
	if err != nil {
		return nil, err
	}

	c.invalidate(ctx, userID)
	c.publish(events.BookUpdated, userID, book)

	return book, nil
}

func (c *bookController) DeleteBook(ctx context.Context, userID, bookID string) error {
	if err := c.db.DeleteBook(ctx, userID, bookID); err != nil {
		return err
	}

	c.invalidate(ctx, userID)
	c.publish(events.BookDeleted, userID, map[string]string{"bookId": bookID})

	return nil
}

// EnqueueBulkUpload writes the pending batch under the user's key with
// no expiry; the ingestion job owns it from here.
func (c *bookController) EnqueueBulkUpload(ctx context.Context, userID string, submissions []model.BookSubmission) error {
	if len(submissions) == 0 {
		return fmt.Errorf("bulk upload is empty")
	}

	payload, err := json.Marshal(submissions)
	if err != nil {
		return fmt.Errorf("failed to marshal bulk upload: %w", err)
	}

	if err := c.store.Set(ctx, model.PendingBatchKey(userID), payload, 0); err != nil {
		return fmt.Errorf("failed to enqueue bulk upload: %w", err)
	}

	log.Info().
		Str("userId", userID).
		Int("count", len(submissions)).
		Msg("Bulk upload enqueued")

	return nil
}

func (c *bookController) invalidate(ctx context.Context, userID string) {
	if err := c.store.Delete(ctx, model.BookListCacheKey(userID)); err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("Failed to invalidate book list cache")
	}
}

func (c *bookController) publish(eventType, userID string, payload interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.Publish(eventType, userID, payload); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
