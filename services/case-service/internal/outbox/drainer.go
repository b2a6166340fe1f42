package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	otelx "github.com/caseworks/contactcentre/libs/otel"
)

// Sender publishes a single claimed event to the message bus. It must return
// only after the bus has confirmed or rejected the event.
type Sender interface {
	Send(ctx context.Context, rec Record) error
}

// Store is the outbox table surface the drainer needs.
type Store interface {
	ClaimBatch(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error)
	DeleteBatch(ctx context.Context, tx pgx.Tx, seqs []int64) error
}

// TxBeginner opens the fresh transaction each drain cycle runs under,
// distinct from any enqueuing transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type DrainerConfig struct {
	PollEvery time.Duration
	BatchSize int
}

// Drainer moves events from the outbox to the message bus. Multiple instances
// may run concurrently; claim disjointness comes entirely from the store's
// skip-locked read.
type Drainer struct {
	pool      TxBeginner
	store     Store
	sender    Sender
	logger    *slog.Logger
	pollEvery time.Duration
	batchSize int
}

func NewDrainer(pool TxBeginner, store Store, sender Sender, logger *slog.Logger, cfg DrainerConfig) *Drainer {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Drainer{
		pool:      pool,
		store:     store,
		sender:    sender,
		logger:    logger,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
	}
}

// Run polls on a fixed cadence. Each tick drains back-to-back while there is
// work, so a backlog is cleared at full speed and an idle outbox costs one
// empty claim per tick.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drainPending(ctx)
		}
	}
}

func (d *Drainer) drainPending(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		hadWork, err := d.DrainOnce(ctx)
		if err != nil {
			d.logger.Error("outbox drain failed", "err", err)
			return
		}
		if !hadWork {
			return
		}
	}
}

// DrainOnce claims one batch, attempts to publish each event in enqueue
// order, and deletes only the confirmed ones. A publish failure leaves its
// row untouched; the row's claim lock releases with this transaction and the
// event is retried on a later cycle, indefinitely. It returns true iff
// anything was claimed, regardless of publish outcome.
func (d *Drainer) DrainOnce(ctx context.Context) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := d.store.ClaimBatch(ctx, tx, d.batchSize)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, tx.Commit(ctx)
	}

	confirmed := make([]int64, 0, len(records))
	for _, rec := range records {
		sendCtx := otelx.ContextWithTraceContext(ctx, rec.Traceparent, rec.Tracestate)
		if err := d.sender.Send(sendCtx, rec); err != nil {
			d.logger.Error("outbox publish failed",
				"event_id", rec.ID,
				"event_type", rec.EventType,
				"enqueued_at", rec.EnqueuedAt,
				"err", err,
			)
			continue
		}
		confirmed = append(confirmed, rec.Seq)
	}

	if err := d.store.DeleteBatch(ctx, tx, confirmed); err != nil {
		return true, err
	}
	if err := tx.Commit(ctx); err != nil {
		return true, err
	}

	if len(confirmed) < len(records) {
		d.logger.Warn("outbox batch partially published",
			"claimed", len(records),
			"published", len(confirmed),
		)
	}
	return true, nil
}
