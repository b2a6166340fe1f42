// Package publisher is the thin client the outbox drainer publishes through.
package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/caseworks/contactcentre/libs/kafkax"
	"github.com/caseworks/contactcentre/services/case-service/internal/outbox"
)

// Client wraps a Kafka writer with the per-event synchronous send contract
// the drainer relies on: Send returns only once the broker has accepted or
// rejected the event. Write timeouts bound how long an outbox claim
// transaction can be held open by a slow broker.
type Client struct {
	writer *kafka.Writer
	logger *slog.Logger
}

type Config struct {
	Brokers string
	Topic   string
}

func New(logger *slog.Logger, cfg Config) *Client {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      kafkax.SplitBrokers(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 20 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: -1,
	})
	return &Client{writer: writer, logger: logger}
}

func (c *Client) Send(ctx context.Context, rec outbox.Record) error {
	msg := kafka.Message{
		Key:   []byte(rec.PartitionKey),
		Value: rec.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(rec.ID.String())},
			{Key: "event_type", Value: []byte(rec.EventType)},
		},
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return c.writer.WriteMessages(ctx, msg)
}

func (c *Client) Close() error {
	return c.writer.Close()
}
