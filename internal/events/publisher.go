package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

type Publisher interface {
	PublishSubmissionCreated(ctx context.Context, event *SubmissionEvent) error
	PublishSubmissionScored(ctx context.Context, event *SubmissionEvent) error
	// Enabled reports whether events actually leave the process.
	Enabled() bool
	Close() error
}

// EventPublisher publishes to a topic exchange with the event type as routing key.
type EventPublisher struct {
	mu           sync.Mutex
	conn         *amqp.Connection
	channel      *amqp.Channel
	exchangeName string
	enabled      bool
}

// NewEventPublisher returns a disabled publisher when uri is empty.
func NewEventPublisher(uri, exchange string) (*EventPublisher, error) {
	if uri == "" {
		log.Warn().Msg("AMQP_URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false}, nil
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := declareExchange(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &EventPublisher{conn: conn, channel: channel, exchangeName: exchange, enabled: true}, nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	err := ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

func (p *EventPublisher) Enabled() bool { return p.enabled }

func (p *EventPublisher) PublishSubmissionCreated(ctx context.Context, event *SubmissionEvent) error {
	return p.publish(ctx, string(EventTypeSubmissionCreated), event)
}

func (p *EventPublisher) PublishSubmissionScored(ctx context.Context, event *SubmissionEvent) error {
	return p.publish(ctx, string(EventTypeSubmissionScored), event)
}

func (p *EventPublisher) publish(ctx context.Context, routingKey string, event interface{}) error {
	if !p.enabled {
		log.Debug().Str("routingKey", routingKey).Msg("Event publishing is disabled, skipping event")
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	log.Debug().Str("routingKey", routingKey).Msg("Published event")
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing publisher channel")
	}
	return p.conn.Close()
}
