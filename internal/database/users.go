package database

import (
	"context"
	"errors"
	"libris/internal/model"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrUserNotFound is returned when a user id resolves to no record
var ErrUserNotFound = errors.New("user not found")

// UserDatabase defines user-related database operations
type UserDatabase interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

func (m *mongoDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := m.usersCol.FindOne(ctx, bson.M{"id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrUserNotFound
	} else if err != nil {
		log.Error().Err(err).Str("userId", id).Msg("Error retrieving user")
		return nil, err
	}

	return &user, nil
}
