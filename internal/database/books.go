package database

import (
	"context"
	"errors"
	"fmt"
	"libris/internal/model"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateISBN is returned when an insert or update violates
	// the global ISBN uniqueness constraint
	ErrDuplicateISBN = errors.New("isbn already exists")

	// ErrBookNotFound is returned when a book does not exist or does
	// not belong to the requesting user
	ErrBookNotFound = errors.New("book not found")
)

// BookDatabase defines book-related database operations
type BookDatabase interface {
	// Create a new book
	CreateBook(ctx context.Context, book *model.Book) error

	// Get a single book owned by a user
	GetBookByID(ctx context.Context, userID, bookID string) (*model.Book, error)

	// Get all books owned by a user, newest first
	GetBooksByUser(ctx context.Context, userID string) ([]model.Book, error)

	// Apply a partial update to a book owned by a user
	UpdateBook(ctx context.Context, userID, bookID string, update model.BookUpdate) (*model.Book, error)

	// Delete a book owned by a user
	DeleteBook(ctx context.Context, userID, bookID string) error
}

// CreateBook inserts a new book, surfacing unique-index violations as
// ErrDuplicateISBN
func (m *mongoDB) CreateBook(ctx context.Context, book *model.Book) error {
	if book.ID.IsZero() {
		book.ID = primitive.NewObjectID()
	}

	_, err := m.booksCol.InsertOne(ctx, book)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateISBN
		}
		log.Error().Err(err).Str("title", book.Title).Msg("Failed to insert book")
		return err
	}

	return nil
}

func (m *mongoDB) GetBookByID(ctx context.Context, userID, bookID string) (*model.Book, error) {
	id, err := primitive.ObjectIDFromHex(bookID)
	if err != nil {
		return nil, ErrBookNotFound
	}

	var book model.Book
	err = m.booksCol.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, ErrBookNotFound
	} else if err != nil {
		log.Error().Err(err).Str("bookId", bookID).Msg("Error retrieving book")
		return nil, err
	}

	return &book, nil
}

func (m *mongoDB) GetBooksByUser(ctx context.Context, userID string) ([]model.Book, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.booksCol.Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Error retrieving books")
		return nil, err
	}
	defer cursor.Close(ctx)

	books := []model.Book{}
	if err = cursor.All(ctx, &books); err != nil {
		log.Error().Err(err).Msg("Error decoding books")
		return nil, err
	}

	return books, nil
}

// UpdateBook applies the non-nil fields of update and returns the
// resulting document
func (m *mongoDB) UpdateBook(ctx context.Context, userID, bookID string, update model.BookUpdate) (*model.Book, error) {
	id, err := primitive.ObjectIDFromHex(bookID)
	if err != nil {
		return nil, ErrBookNotFound
	}

	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Author != nil {
		set["author"] = *update.Author
	}
	if update.ISBN != nil {
		set["isbn"] = *update.ISBN
	}
	if update.PublishedYear != nil {
		set["published_year"] = *update.PublishedYear
	}
	if update.Genre != nil {
		set["genre"] = *update.Genre
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}

	if len(set) == 0 {
		return m.GetBookByID(ctx, userID, bookID)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var book model.Book
	err = m.booksCol.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": set},
		opts,
	).Decode(&book)

	if err == mongo.ErrNoDocuments {
		return nil, ErrBookNotFound
	} else if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateISBN
		}
		log.Error().Err(err).Str("bookId", bookID).Msg("Error updating book")
		return nil, err
	}

	return &book, nil
}

func (m *mongoDB) DeleteBook(ctx context.Context, userID, bookID string) error {
	id, err := primitive.ObjectIDFromHex(bookID)
	if err != nil {
		return ErrBookNotFound
	}

	result, err := m.booksCol.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		log.Error().Err(err).Str("bookId", bookID).Msg("Error deleting book")
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrBookNotFound
	}

	return nil
}
