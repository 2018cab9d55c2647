package messaging

import (
	"fmt"

	"github.com/has-1997/jetback-mvp/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultPrefetch = 8

// RabbitMQConsumer owns the AMQP connection used for inbound email delivery
type RabbitMQConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  logger.Logger
}

// NewRabbitMQConsumer dials the broker and declares a durable queue
func NewRabbitMQConsumer(url, queue string, logger logger.Logger) (*RabbitMQConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	if err := ch.Qos(defaultPrefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq qos: %w", err)
	}

	return &RabbitMQConsumer{conn: conn, channel: ch, queue: queue, logger: logger}, nil
}

// Consume starts delivery with manual acknowledgement
func (c *RabbitMQConsumer) Consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack off, the consumer acks after ingestion
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Info("Consuming inbound emails", "queue", c.queue)
	return msgs, nil
}

// Close closes the channel and connection
func (c *RabbitMQConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
