package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionValidate(t *testing.T) {
	valid := BookSubmission{Title: "Dune", Author: "Frank Herbert"}
	assert.NoError(t, valid.Validate())

	noTitle := BookSubmission{Author: "Frank Herbert"}
	assert.EqualError(t, noTitle.Validate(), "title is required")

	noAuthor := BookSubmission{Title: "Dune"}
	assert.EqualError(t, noAuthor.Validate(), "author is required")
}

func TestSubmissionToBook(t *testing.T) {
	sub := BookSubmission{
		Title:         "Dune",
		Author:        "Frank Herbert",
		ISBN:          "9780441172719",
		PublishedDate: "1965-08-01",
		Genre:         "Science Fiction",
	}

	book := sub.ToBook("user-1")
	require.NotNil(t, book)
	assert.Equal(t, "user-1", book.UserID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, 1965, book.PublishedYear)
	assert.False(t, book.CreatedAt.IsZero())
}

func TestSubmissionToBookBadDate(t *testing.T) {
	book := BookSubmission{Title: "T", Author: "A", PublishedDate: "unknown"}.ToBook("u")
	assert.Equal(t, 0, book.PublishedYear)

	book = BookSubmission{Title: "T", Author: "A"}.ToBook("u")
	assert.Equal(t, 0, book.PublishedYear)
}

func TestSuccessRate(t *testing.T) {
	status := BatchStatus{TotalBooks: 3, SuccessCount: 1, FailureCount: 2}
	assert.InDelta(t, 33.33, status.SuccessRate(), 0.01)

	// A zero-item batch must not divide by zero
	empty := BatchStatus{TotalBooks: 0}
	assert.Equal(t, 0.0, empty.SuccessRate())

	full := BatchStatus{TotalBooks: 4, SuccessCount: 4}
	assert.Equal(t, 100.0, full.SuccessRate())
}
