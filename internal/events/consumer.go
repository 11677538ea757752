package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// SubmissionHandler processes one submission.created event. Returning an error requeues it.
type SubmissionHandler func(ctx context.Context, event SubmissionEvent) error

// EventConsumer runs the evaluation pipeline for submissions announced on the exchange.
type EventConsumer struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queueName    string
	exchangeName string
	handler      SubmissionHandler
	workers      int
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	enabled      bool
}

// NewEventConsumer returns a disabled consumer when uri is empty. prefetch is both the
// broker QoS and the number of deliveries handled concurrently.
func NewEventConsumer(uri, exchange, queue string, prefetch int, handler SubmissionHandler) (*EventConsumer, error) {
	if uri == "" {
		log.Warn().Msg("AMQP_URI is empty, event consumption is disabled")
		return &EventConsumer{handler: handler, enabled: false}, nil
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

	if prefetch <= 0 {
		prefetch = 4
	}
	if err := channel.Qos(prefetch, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	if err := declareExchange(channel, exchange); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	_, err = channel.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &EventConsumer{
		conn:         conn,
		channel:      channel,
		queueName:    queue,
		exchangeName: exchange,
		handler:      handler,
		workers:      prefetch,
		enabled:      true,
	}, nil
}

func (c *EventConsumer) Enabled() bool { return c.enabled }

func (c *EventConsumer) Start() error {
	if !c.enabled {
		log.Info().Msg("Event consumption is disabled, not starting consumer")
		return nil
	}

	err := c.channel.QueueBind(
		c.queueName,                        // queue name
		string(EventTypeSubmissionCreated), // routing key
		c.exchangeName,                     // exchange
		false,                              // no-wait
		nil,                                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.startWorkers(ctx, msgs)

	log.Info().Str("queue", c.queueName).Int("workers", c.workers).Msg("Event consumer started")
	return nil
}

func (c *EventConsumer) startWorkers(ctx context.Context, msgs <-chan amqp.Delivery) {
	workers := c.workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.consume(ctx, msgs)
		}()
	}
}

func (c *EventConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping event consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Warn().Msg("Message channel closed")
				return
			}
			if err := c.processMessage(ctx, msg); err != nil {
				log.Error().Err(err).Str("routingKey", msg.RoutingKey).Msg("Error processing message")
				if err := msg.Nack(false, !msg.Redelivered); err != nil {
					log.Error().Err(err).Msg("Error NACKing message")
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				log.Error().Err(err).Msg("Error ACKing message")
			}
		}
	}
}

func (c *EventConsumer) processMessage(ctx context.Context, msg amqp.Delivery) error {
	switch EventType(msg.RoutingKey) {
	case EventTypeSubmissionCreated:
		var event SubmissionEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			// malformed payloads are dropped rather than requeued forever
			log.Error().Err(err).Msg("Failed to unmarshal submission created event")
			return nil
		}
		return c.handler(ctx, event)
	default:
		log.Warn().Str("routingKey", msg.RoutingKey).Msg("Unknown routing key")
		return nil
	}
}

func (c *EventConsumer) Close() error {
	if !c.enabled {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if err := c.channel.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing consumer channel")
	}
	return c.conn.Close()
}
