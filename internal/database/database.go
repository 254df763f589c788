package database

import (
	"context"
	"libris/internal/config"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Database interface {
	Health() error
	Close(ctx context.Context) error
	BookDatabase
	UserDatabase
}

type mongoDB struct {
	client *mongo.Client
	db     *mongo.Database

	booksCol *mongo.Collection
	usersCol *mongo.Collection
}

func New(config *config.Config) (Database, error) {
	clientOptions := options.Client().ApplyURI(config.MongoDB.URI)

	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		return nil, err
	}

	db := client.Database(config.MongoDB.DB)

	booksCol := db.Collection("books")
	// ISBN uniqueness is global, not per user. Sparse so books without
	// an ISBN do not collide with each other.
	bookIndexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "isbn", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			// Index for per-user listing
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index(),
		},
		{
			// Index for sorting by creation date
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index(),
		},
	}

	usersCol := db.Collection("users")
	userIndexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err = booksCol.Indexes().CreateMany(context.Background(), bookIndexModels)
	if err != nil {
		log.Warn().Err(err).Str("Collection", "Books").Msg("Error creating indexes")
	}

	_, err = usersCol.Indexes().CreateMany(context.Background(), userIndexModels)
	if err != nil {
		log.Warn().Err(err).Str("Collection", "Users").Msg("Error creating indexes")
	}

	return &mongoDB{
		client:   client,
		db:       db,
		booksCol: booksCol,
		usersCol: usersCol,
	}, nil
}

// Health implements Database interface
func (m *mongoDB) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := m.client.Ping(ctx, nil)

	if err != nil {
		log.Error().Msgf("Database health error: %v", err)
		return err
	}

	return nil
}

// Close disconnects the underlying client
func (m *mongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
