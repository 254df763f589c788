package server

import (
	"fmt"
	"libris/internal/config"
	"libris/internal/controller"
	"libris/internal/database"
	"libris/internal/events"
	"libris/internal/store"
	"net/http"
	"time"
)

type Server struct {
	sc     controller.ServerController
	bc     controller.BookController
	config config.Config
}

func New(config config.Config, db database.Database, st store.Store, publisher events.Publisher) *http.Server {
	sc := controller.NewServer(db, st)
	bc := controller.NewBookController(db, st, publisher)

	server := Server{
		sc:     sc,
		bc:     bc,
		config: config,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%v", config.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
