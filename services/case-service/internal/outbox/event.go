// Package outbox implements the transactional outbox: events are appended to
// a durable table inside the business transaction that produced them, and a
// background drainer publishes and deletes them. A row exists if and only if
// its event has not yet been confirmed published.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Record is a pending outbound event as claimed from the store. Seq orders
// records by enqueue time within a drain batch; PartitionKey selects the
// Kafka partition so per-aggregate ordering survives publishing.
type Record struct {
	Seq          int64
	ID           uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	Traceparent  string
	Tracestate   string
	EnqueuedAt   time.Time
}
