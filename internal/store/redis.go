package store

import (
	"context"
	"fmt"
	"libris/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store defines the shared key-value store interface. It doubles as the
// read cache and as the lightweight work queue the background jobs
// coordinate through.
type Store interface {
	// Get retrieves a value from the store
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL (zero means no expiry)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key from the store
	Delete(ctx context.Context, key string) error

	// Scan returns all keys matching the given prefix
	Scan(ctx context.Context, prefix string) ([]string, error)

	// Ping tests the connection to the store
	Ping(ctx context.Context) error

	// Close releases resources used by the store
	Close() error
}

// ErrNotFound is returned when a key is not present in the store
var ErrNotFound = fmt.Errorf("key not found")

// RedisStore implements the Store interface using Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store instance
func NewRedisStore(config config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	// Verify the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to connect to Redis")
		return nil, err
	}

	log.Info().
		Str("address", config.Address).
		Int("db", config.DB).
		Msg("Redis store initialized successfully")

	return &RedisStore{client: client}, nil
}

// Get retrieves a value from the store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	result, err := s.client.Get(ctx, key).Bytes()
	duration := time.Since(start)

	if err == redis.Nil {
		log.Debug().
			Str("key", key).
			Dur("duration", duration).
			Msg("Key not found")
		return nil, ErrNotFound
	} else if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("duration", duration).
			Msg("Error getting value from Redis")
		return nil, err
	}

	log.Debug().
		Str("key", key).
		Int("size", len(result)).
		Dur("duration", duration).
		Msg("Key read")

	return result, nil
}

// Set stores a value with an optional TTL
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := s.client.Set(ctx, key, value, ttl).Err()
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Int("size", len(value)).
			Dur("ttl", ttl).
			Dur("duration", duration).
			Msg("Error setting value in Redis")
		return err
	}

	log.Debug().
		Str("key", key).
		Int("size", len(value)).
		Dur("ttl", ttl).
		Dur("duration", duration).
		Msg("Key written")

	return nil
}

// Delete removes a key from the store
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.client.Del(ctx, key).Err()
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Str("key", key).
			Dur("duration", duration).
			Msg("Error deleting key from Redis")
		return err
	}

	log.Debug().
		Str("key", key).
		Dur("duration", duration).
		Msg("Key deleted")

	return nil
}

// Scan returns all keys matching the given prefix. The result set is
// unbounded: if producers outrun the jobs draining these namespaces,
// the per-run key list grows with them.
func (s *RedisStore) Scan(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()

	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			log.Error().
				Err(err).
				Str("prefix", prefix).
				Msg("Error scanning keys in Redis")
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	log.Debug().
		Str("prefix", prefix).
		Int("count", len(keys)).
		Dur("duration", time.Since(start)).
		Msg("Prefix scan complete")

	return keys, nil
}

// Ping tests the connection to the store
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Error pinging Redis")
		return err
	}
	return nil
}

// Close releases resources used by the store
func (s *RedisStore) Close() error {
	log.Info().Msg("Closing Redis store connection")
	return s.client.Close()
}
