// Package consumer runs the inbound listeners: one consumer per upstream
// topic, each with a bounded pool of workers pulling from the same consumer
// group. Broker-level failures back off and reconnect without spending a
// processing attempt; handler-level failures retry a bounded number of times
// and then dead-letter.
package consumer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/caseworks/contactcentre/libs/kafkax"
	"github.com/caseworks/contactcentre/libs/retry"
	"github.com/caseworks/contactcentre/services/case-service/internal/events"
)

// ProcessFunc handles one decoded event. Returning an error marks the whole
// attempt failed; the consumer owns retries and dead-lettering around it.
type ProcessFunc func(ctx context.Context, env events.Envelope) error

// DeadLetterRouter receives messages whose retry budget is exhausted.
type DeadLetterRouter interface {
	Route(ctx context.Context, msg kafka.Message, attempts int, cause error) error
}

// messageReader is the part of kafka.Reader the workers use; fetch and commit
// are split so a message is acknowledged only after it was handled or routed
// to the dead-letter topic.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers   string
	GroupID   string
	Topic     string
	EventType string

	// Workers is the number of concurrent consumers for the topic; Prefetch
	// caps unacknowledged messages buffered per worker.
	Workers  int
	Prefetch int

	// MaxAttempts bounds handler executions per message. TransportBackoff
	// paces broker reconnects; HandlerBackoff paces re-attempts. The two are
	// independent policies.
	MaxAttempts      int
	TransportBackoff retry.Policy
	HandlerBackoff   retry.Policy
}

type Consumer struct {
	cfg         Config
	logger      *slog.Logger
	process     ProcessFunc
	deadLetters DeadLetterRouter

	newReader func() messageReader
}

func New(logger *slog.Logger, deadLetters DeadLetterRouter, cfg Config, process ProcessFunc) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	brokers := kafkax.SplitBrokers(cfg.Brokers)
	return &Consumer{
		cfg:         cfg,
		logger:      logger.With("topic", cfg.Topic, "event_type", cfg.EventType),
		process:     process,
		deadLetters: deadLetters,
		newReader: func() messageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:       brokers,
				GroupID:       cfg.GroupID,
				Topic:         cfg.Topic,
				MinBytes:      1,
				MaxBytes:      10e6,
				QueueCapacity: cfg.Prefetch,
			})
		},
	}
}

// Run blocks until ctx is cancelled and all workers have drained.
func (c *Consumer) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.runWorker(ctx, worker)
		}(i)
	}
	wg.Wait()
}

func (c *Consumer) runWorker(ctx context.Context, worker int) {
	reader := c.newReader()
	defer reader.Close()

	logger := c.logger.With("worker", worker)
	transportAttempt := 0
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("kafka fetch failed", "attempt", transportAttempt+1, "err", err)
			if err := c.cfg.TransportBackoff.Sleep(ctx, transportAttempt); err != nil {
				return
			}
			transportAttempt++
			continue
		}
		transportAttempt = 0

		c.handleMessage(ctx, logger, reader, msg)
	}
}

func (c *Consumer) handleMessage(ctx context.Context, logger *slog.Logger, reader messageReader, msg kafka.Message) {
	msgCtx := kafkax.ExtractTraceContext(ctx, msg)
	msgCtx, span := otel.Tracer("kafka").Start(msgCtx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	attempts, err := c.processWithRetry(msgCtx, logger, msg)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down mid-message: leave it unacknowledged so the group
			// redelivers it.
			return
		}
		span.RecordError(err)
		if routeErr := c.deadLetters.Route(msgCtx, msg, attempts, err); routeErr != nil {
			logger.Error("dead-letter routing failed, message will be redelivered", "err", routeErr)
			return
		}
	}

	if err := reader.CommitMessages(ctx, msg); err != nil {
		logger.Error("offset commit failed", "err", err)
	}
}

// processWithRetry returns the number of handler attempts made and the final
// error, nil once an attempt succeeds. Rejections and discards are successes
// from the listener's point of view.
func (c *Consumer) processWithRetry(ctx context.Context, logger *slog.Logger, msg kafka.Message) (int, error) {
	meta := kafkax.ExtractEventMeta(msg)

	env, err := events.Decode(c.cfg.EventType, msg.Value)
	if err != nil {
		// A malformed payload fails identically on every attempt; route it
		// straight to the dead-letter topic.
		logger.Error("message decode failed", "event_id", meta.EventID, "err", err)
		return 1, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.cfg.HandlerBackoff.Sleep(ctx, attempt-2); err != nil {
				return attempt - 1, lastErr
			}
		}
		if err := c.process(ctx, env); err != nil {
			lastErr = err
			logger.Warn("event processing failed",
				"event_id", meta.EventID,
				"message_id", env.Header.MessageID,
				"correlation_id", env.Header.CorrelationID,
				"attempt", attempt,
				"max_attempts", c.cfg.MaxAttempts,
				"err", err,
			)
			continue
		}
		return attempt, nil
	}
	return c.cfg.MaxAttempts, lastErr
}
