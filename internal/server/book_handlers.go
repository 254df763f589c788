package server

import (
	"libris/internal/model"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) listBooksHandler(c *gin.Context) {
	userID := currentUserID(c)

	books, err := s.bc.ListBooks(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to list books")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list books"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (s *Server) getBookHandler(c *gin.Context) {
	userID := currentUserID(c)

	book, err := s.bc.GetBook(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, book)
}

func (s *Server) createBookHandler(c *gin.Context) {
	userID := currentUserID(c)

	var submission model.BookSubmission
	if err := c.ShouldBindJSON(&submission); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := submission.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := s.bc.CreateBook(c.Request.Context(), userID, submission)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (s *Server) updateBookHandler(c *gin.Context) {
	userID := currentUserID(c)

	var update model.BookUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	book, err := s.bc.UpdateBook(c.Request.Context(), userID, c.Param("id"), update)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, book)
}

func (s *Server) deleteBookHandler(c *gin.Context) {
	userID := currentUserID(c)

	if err := s.bc.DeleteBook(c.Request.Context(), userID, c.Param("id")); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

// bulkUploadHandler accepts a batch of submissions and parks it for the
// ingestion job. Items are not validated here: per-item outcomes are
// reported through the emailed batch report.
func (s *Server) bulkUploadHandler(c *gin.Context) {
	userID := currentUserID(c)

	var req struct {
		Books []model.BookSubmission `json:"books"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := s.bc.EnqueueBulkUpload(c.Request.Context(), userID, req.Books); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "Bulk upload accepted for processing",
		"count":   len(req.Books),
	})
}
