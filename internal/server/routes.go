package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.healthHandler)
	r.GET("/online", s.onlineHandler)

	books := r.Group("/books", s.AuthMiddleware())
	{
		books.GET("", s.listBooksHandler)
		books.POST("", s.createBookHandler)
		books.GET("/:id", s.getBookHandler)
		books.PUT("/:id", s.updateBookHandler)
		books.DELETE("/:id", s.deleteBookHandler)
		books.POST("/bulk", s.bulkUploadHandler)
	}

	return r
}
