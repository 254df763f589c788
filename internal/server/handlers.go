package server

import (
	"errors"
	"libris/internal/database"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) healthHandler(c *gin.Context) {
	if err := s.sc.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) onlineHandler(c *gin.Context) {
	online := s.sc.Online()

	c.String(http.StatusOK, online)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrDuplicateISBN):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
