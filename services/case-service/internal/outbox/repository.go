package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	otelx "github.com/caseworks/contactcentre/libs/otel"
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Enqueue appends one event to the outbox inside the caller's open
// transaction; the row becomes visible only when that transaction commits and
// never exists for a change that rolled back. A serialization failure is a
// contract error and aborts the enclosing transaction.
func (r *Repository) Enqueue(ctx context.Context, tx pgx.Tx, eventType, partitionKey string, payload any) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	id := uuid.New()
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, event_type, partition_key, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, eventType, partitionKey, body, traceparent, tracestate)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return id, nil
}

// ClaimBatch locks up to limit of the oldest pending events for the duration
// of tx. SKIP LOCKED keeps concurrently draining instances on disjoint rows:
// a row claimed by another in-flight drain is passed over, not waited on.
func (r *Repository) ClaimBatch(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT seq, event_id, event_type, partition_key, payload, traceparent, tracestate, enqueued_at
		FROM outbox_events
		ORDER BY seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.Seq, &rcd.ID, &rcd.EventType, &rcd.PartitionKey, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.EnqueuedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// DeleteBatch removes confirmed-published events. Rows are never updated in
// place; deletion is the only state transition.
func (r *Repository) DeleteBatch(ctx context.Context, tx pgx.Tx, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		DELETE FROM outbox_events
		WHERE seq = ANY($1)
	`, seqs)
	return err
}
