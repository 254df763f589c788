package model

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Book represents a persisted catalog entry owned by a single user.
// ISBN, where present, is unique across the whole store (not scoped to
// the owning user) and is enforced by a unique index.
type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        string             `bson:"user_id" json:"userId"`
	Title         string             `bson:"title" json:"title"`
	Author        string             `bson:"author" json:"author"`
	ISBN          string             `bson:"isbn,omitempty" json:"isbn,omitempty"`
	PublishedYear int                `bson:"published_year,omitempty" json:"publishedYear,omitempty"`
	Genre         string             `bson:"genre,omitempty" json:"genre,omitempty"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

// User is the minimal user record this service reads. Users are created
// elsewhere; only id and email matter for report delivery.
type User struct {
	ID    string `bson:"id" json:"id"`
	Email string `bson:"email" json:"email"`
	Name  string `bson:"name,omitempty" json:"name,omitempty"`
}

// BookSubmission is one raw item of a bulk upload. Nothing is trusted
// until Validate has run.
type BookSubmission struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Genre         string `json:"genre,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Validate checks the required fields of a submission.
func (s BookSubmission) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	if s.Author == "" {
		return fmt.Errorf("author is required")
	}
	return nil
}

// ToBook converts a validated submission into a Book owned by userID.
// The published year is taken from the leading year of publishedDate;
// unparseable dates leave the year unset rather than failing the item.
func (s BookSubmission) ToBook(userID string) *Book {
	return &Book{
		UserID:        userID,
		Title:         s.Title,
		Author:        s.Author,
		ISBN:          s.ISBN,
		PublishedYear: yearOf(s.PublishedDate),
		Genre:         s.Genre,
		Description:   s.Description,
		CreatedAt:     time.Now(),
	}
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 0 {
		return 0
	}
	return year
}

// BookUpdate carries the mutable fields of a book. Nil pointers mean
// "leave unchanged".
type BookUpdate struct {
	Title         *string `json:"title,omitempty"`
	Author        *string `json:"author,omitempty"`
	ISBN          *string `json:"isbn,omitempty"`
	PublishedYear *int    `json:"publishedYear,omitempty"`
	Genre         *string `json:"genre,omitempty"`
	Description   *string `json:"description,omitempty"`
}
