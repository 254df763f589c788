package controller

import (
	"context"
	"libris/internal/database"
	"libris/internal/store"
)

type ServerController interface {
	Health(ctx context.Context) error
	Online() string
}

type serverController struct {
	db    database.Database
	store store.Store
}

func NewServer(db database.Database, st store.Store) ServerController {
	return &serverController{
		db:    db,
		store: st,
	}
}

func (sc *serverController) Online() string {
	return "Online"
}

func (sc *serverController) Health(ctx context.Context) error {
	if err := sc.db.Health(); err != nil {
		return err
	}
	return sc.store.Ping(ctx)
}
