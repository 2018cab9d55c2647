package queue

import (
	"context"
	"errors"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Optional AMQP headers carrying caller-supplied booking fields
const (
	HeaderOwnerID       = "owner_id"
	HeaderOrigin        = "origin"
	HeaderDestination   = "destination"
	HeaderDepartureDate = "departure_date"
)

// Ingester turns a raw email into a tracked booking
type Ingester interface {
	Ingest(ctx context.Context, msg entity.InboundMessage) (*entity.TrackedBooking, error)
}

// EmailConsumer feeds queued raw emails into the ingestion gateway
type EmailConsumer struct {
	ingester   Ingester
	retryDelay time.Duration
	logger     logger.Logger
}

// NewEmailConsumer creates a new email consumer. Deliveries that failed on
// storage are held for retryDelay before being requeued.
func NewEmailConsumer(ingester Ingester, retryDelay time.Duration, logger logger.Logger) *EmailConsumer {
	return &EmailConsumer{
		ingester:   ingester,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Run handles deliveries until ctx is done or the channel closes
func (c *EmailConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Email consumer stopped")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Delivery channel closed, stopping email consumer")
				return
			}
			c.handle(ctx, msg)
		}
	}
}

// handle acks emails that were ingested or can never be ingested, and requeues
// those that failed on storage after the retry delay. The delay blocks this
// consumer so an unavailable store is not hammered with redeliveries.
func (c *EmailConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	receivedAt := msg.Timestamp
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	booking, err := c.ingester.Ingest(ctx, entity.InboundMessage{
		Raw:           msg.Body,
		Source:        entity.SourceQueue,
		MessageID:     msg.MessageId,
		ReceivedAt:    receivedAt,
		OwnerID:       headerString(msg.Headers, HeaderOwnerID),
		Origin:        headerString(msg.Headers, HeaderOrigin),
		Destination:   headerString(msg.Headers, HeaderDestination),
		DepartureDate: headerString(msg.Headers, HeaderDepartureDate),
	})

	switch {
	case err == nil:
		c.logger.Debug("Queued email ingested", "messageID", msg.MessageId, "bookingID", booking.ID)
		c.ack(msg)
	case errors.Is(err, entity.ErrPersistenceFailed):
		c.logger.Warn("Requeueing email after store failure",
			"messageID", msg.MessageId,
			"retryDelay", c.retryDelay,
			"error", err)
		c.waitRetry(ctx)
		if nackErr := msg.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to nack delivery", "messageID", msg.MessageId, "error", nackErr)
		}
	default:
		c.logger.Warn("Dropping email that cannot be ingested", "messageID", msg.MessageId, "error", err)
		c.ack(msg)
	}
}

// waitRetry returns after the retry delay or as soon as ctx is done
func (c *EmailConsumer) waitRetry(ctx context.Context) {
	if c.retryDelay <= 0 {
		return
	}

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (c *EmailConsumer) ack(msg amqp.Delivery) {
	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack delivery", "messageID", msg.MessageId, "error", err)
	}
}

func headerString(headers amqp.Table, key string) string {
	if headers == nil {
		return ""
	}
	switch v := headers[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}
