package events

import (
	"context"
	"encoding/json"
	"fmt"
	"libris/internal/config"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Routing keys for catalog events.
const (
	BookCreated    = "book.created"
	BookUpdated    = "book.updated"
	BookDeleted    = "book.deleted"
	BatchCompleted = "batch.completed"
)

// Event is the envelope published for every catalog change. Payload
// holds the event-specific body.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	UserID    string      `json:"userId"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher delivers catalog events. Publishing is fire-and-forget for
// callers: they log failures but never fail their own operation on one.
type Publisher interface {
	Publish(eventType, userID string, payload interface{}) error
	Health() error
	Close() error
}

type publisher struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	config       config.RabbitMQConfig
	mu           sync.Mutex
	reconnecting bool
	notifyClose  chan *amqp.Error
}

// NewPublisher connects to RabbitMQ and declares the topic exchange the
// catalog publishes on.
func NewPublisher(cfg config.RabbitMQConfig) (Publisher, error) {
	p := &publisher{
		config:       cfg,
		reconnecting: false,
	}

	if err := p.connect(); err != nil {
		return nil, err
	}

	if err := p.channel.ExchangeDeclare(cfg.ExchangeName, "topic", true, false, false, false, nil); err != nil {
		p.conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Setup reconnection handling
	p.setupReconnect()

	return p, nil
}

func (p *publisher) connect() error {
	amqpURL := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		p.config.Username,
		p.config.Password,
		p.config.Host,
		p.config.Port,
		p.config.VHost,
	)

	conn, err := amqp.DialConfig(amqpURL, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ")
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open RabbitMQ channel")
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	p.conn = conn
	p.channel = ch

	log.Info().
		Str("host", p.config.Host).
		Int("port", p.config.Port).
		Str("vhost", p.config.VHost).
		Msg("RabbitMQ connection established")

	return nil
}

func (p *publisher) setupReconnect() {
	p.notifyClose = p.conn.NotifyClose(make(chan *amqp.Error))

	// Handle connection failures in the background
	go func() {
		for err := range p.notifyClose {
			log.Warn().
				Str("reason", err.Reason).
				Int("code", err.Code).
				Msg("RabbitMQ connection closed, attempting to reconnect...")

			p.doReconnect()
		}
	}()
}

func (p *publisher) doReconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reconnecting {
		return
	}

	p.reconnecting = true
	defer func() { p.reconnecting = false }()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		p.conn.Close()
	}

	// Reconnect with capped exponential backoff
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		log.Info().Dur("backoff", backoff).Msg("Attempting to reconnect to RabbitMQ")

		if err := p.connect(); err != nil {
			log.Error().Err(err).Msg("Failed to reconnect to RabbitMQ")

			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		p.notifyClose = p.conn.NotifyClose(make(chan *amqp.Error))

		log.Info().Msg("Successfully reconnected to RabbitMQ")
		return
	}
}

// Publish sends one event to the catalog exchange as a persistent JSON
// message, routed by event type.
func (p *publisher) Publish(eventType, userID string, payload interface{}) error {
	event := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Connection check and auto-reconnect
	if p.conn == nil || p.channel == nil || p.conn.IsClosed() {
		if err := p.connect(); err != nil {
			return fmt.Errorf("failed to reconnect before publishing: %w", err)
		}
		p.setupReconnect()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, p.config.ExchangeName, eventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})

	if err != nil {
		log.Error().
			Err(err).
			Str("exchange", p.config.ExchangeName).
			Str("routingKey", eventType).
			Msg("Failed to publish event")
		return err
	}

	log.Debug().
		Str("eventId", event.ID).
		Str("routingKey", eventType).
		Int("size", len(body)).
		Msg("Published event")

	return nil
}

func (p *publisher) Health() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.channel == nil {
		return fmt.Errorf("nil connection or channel")
	}
	if p.conn.IsClosed() {
		return fmt.Errorf("connection is closed")
	}

	return nil
}

func (p *publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ channel")
			return fmt.Errorf("channel close error: %w", err)
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ connection")
			return fmt.Errorf("connection close error: %w", err)
		}
	}

	log.Info().Msg("RabbitMQ connection and channel closed")
	return nil
}
