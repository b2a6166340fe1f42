// Package deadletter routes messages that exhausted their retry budget to a
// separate topic instead of redelivering or silently dropping them.
package deadletter

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/caseworks/contactcentre/libs/kafkax"
)

type Router struct {
	writer *kafka.Writer
	logger *slog.Logger
}

type Config struct {
	Brokers string
	Topic   string
}

func NewRouter(logger *slog.Logger, cfg Config) *Router {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      kafkax.SplitBrokers(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 20 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: -1,
	})
	return &Router{writer: writer, logger: logger}
}

// Route forwards the raw message bytes with failure metadata headers. The
// original headers are preserved so the source event stays traceable from
// the dead-letter topic.
func (r *Router) Route(ctx context.Context, msg kafka.Message, attempts int, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}
	headers := make([]kafka.Header, 0, len(msg.Headers)+4)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq_source_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "dlq_reason", Value: []byte(reason)},
		kafka.Header{Key: "dlq_attempts", Value: []byte(strconv.Itoa(attempts))},
		kafka.Header{Key: "dlq_failed_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
	)
	headers = kafkax.InjectTraceHeaders(ctx, headers)

	if err := r.writer.WriteMessages(ctx, kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}); err != nil {
		return err
	}

	meta := kafkax.ExtractEventMeta(msg)
	r.logger.Error("message dead-lettered",
		"source_topic", msg.Topic,
		"event_id", meta.EventID,
		"event_type", meta.EventType,
		"attempts", attempts,
		"reason", reason,
	)
	return nil
}

func (r *Router) Close() error {
	return r.writer.Close()
}
