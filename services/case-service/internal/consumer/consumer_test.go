package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/caseworks/contactcentre/libs/retry"
	"github.com/caseworks/contactcentre/services/case-service/internal/events"
)

type fetchResult struct {
	msg kafka.Message
	err error
}

// fakeReader serves a fixed queue of fetch results, then cancels the run
// context so Run returns deterministically.
type fakeReader struct {
	mu        sync.Mutex
	queue     []fetchResult
	committed []kafka.Message
	onEmpty   context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		res := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return res.msg, res.err
	}
	r.mu.Unlock()
	r.onEmpty()
	return kafka.Message{}, context.Canceled
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

type fakeDLQ struct {
	mu       sync.Mutex
	routed   []kafka.Message
	attempts []int
	err      error
}

func (d *fakeDLQ) Route(_ context.Context, msg kafka.Message, attempts int, _ error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.routed = append(d.routed, msg)
	d.attempts = append(d.attempts, attempts)
	return nil
}

func (d *fakeDLQ) routeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.routed)
}

func surveyUpdateMessage(t *testing.T) kafka.Message {
	t.Helper()
	body := `{
		"header": {"messageId": "` + uuid.NewString() + `", "correlationId": "corr-1", "dateTime": "2026-02-01T10:00:00Z"},
		"payload": {"surveyId": "` + uuid.NewString() + `", "name": "LMS", "sampleDefinitionUrl": "https://x/social.json"}
	}`
	return kafka.Message{Topic: "case.survey-update", Value: []byte(body)}
}

func runConsumer(t *testing.T, reader *fakeReader, dlq DeadLetterRouter, maxAttempts int, process ProcessFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader.onEmpty = cancel

	c := New(slog.New(slog.NewTextHandler(io.Discard, nil)), dlq, Config{
		Topic:            "case.survey-update",
		EventType:        events.TypeSurveyUpdate,
		MaxAttempts:      maxAttempts,
		TransportBackoff: retry.Policy{Initial: time.Millisecond, Multiplier: 2, Max: 2 * time.Millisecond},
		HandlerBackoff:   retry.Policy{Initial: time.Millisecond, Multiplier: 2, Max: 2 * time.Millisecond},
	}, process)
	c.newReader = func() messageReader { return reader }

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestRun_RetryExhaustionDeadLetters(t *testing.T) {
	reader := &fakeReader{queue: []fetchResult{{msg: surveyUpdateMessage(t)}}}
	dlq := &fakeDLQ{}

	var mu sync.Mutex
	calls := 0
	const maxAttempts = 4
	runConsumer(t, reader, dlq, maxAttempts, func(context.Context, events.Envelope) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("handler always fails")
	})

	if calls != maxAttempts {
		t.Fatalf("expected exactly %d handler invocations, got %d", maxAttempts, calls)
	}
	if dlq.routeCount() != 1 {
		t.Fatalf("expected exactly 1 dead-letter routing, got %d", dlq.routeCount())
	}
	if dlq.attempts[0] != maxAttempts {
		t.Fatalf("expected %d attempts reported, got %d", maxAttempts, dlq.attempts[0])
	}
	// Committing after dead-lettering is what prevents redelivery.
	if reader.commitCount() != 1 {
		t.Fatalf("expected the message to be acknowledged once, got %d commits", reader.commitCount())
	}
}

func TestRun_TransientHandlerFailureRecovers(t *testing.T) {
	reader := &fakeReader{queue: []fetchResult{{msg: surveyUpdateMessage(t)}}}
	dlq := &fakeDLQ{}

	var mu sync.Mutex
	calls := 0
	runConsumer(t, reader, dlq, 3, func(context.Context, events.Envelope) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})

	if calls != 2 {
		t.Fatalf("expected 2 handler invocations, got %d", calls)
	}
	if dlq.routeCount() != 0 {
		t.Fatal("recovered message must not be dead-lettered")
	}
	if reader.commitCount() != 1 {
		t.Fatalf("expected 1 commit, got %d", reader.commitCount())
	}
}

func TestRun_TransportFailureDoesNotConsumeAttempts(t *testing.T) {
	reader := &fakeReader{queue: []fetchResult{
		{err: errors.New("broker unreachable")},
		{err: errors.New("broker unreachable")},
		{msg: surveyUpdateMessage(t)},
	}}
	dlq := &fakeDLQ{}

	var mu sync.Mutex
	calls := 0
	runConsumer(t, reader, dlq, 1, func(context.Context, events.Envelope) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	if calls != 1 {
		t.Fatalf("expected 1 handler invocation after reconnect, got %d", calls)
	}
	if dlq.routeCount() != 0 {
		t.Fatal("transport failures must never dead-letter")
	}
}

func TestRun_MalformedMessageDeadLettersWithoutHandlerCalls(t *testing.T) {
	reader := &fakeReader{queue: []fetchResult{
		{msg: kafka.Message{Topic: "case.survey-update", Value: []byte("not json")}},
	}}
	dlq := &fakeDLQ{}

	calls := 0
	runConsumer(t, reader, dlq, 3, func(context.Context, events.Envelope) error {
		calls++
		return nil
	})

	if calls != 0 {
		t.Fatalf("expected no handler invocations for undecodable message, got %d", calls)
	}
	if dlq.routeCount() != 1 {
		t.Fatalf("expected 1 dead-letter routing, got %d", dlq.routeCount())
	}
	if reader.commitCount() != 1 {
		t.Fatalf("expected the message to be acknowledged, got %d commits", reader.commitCount())
	}
}

func TestRun_DeadLetterFailureLeavesMessageUnacknowledged(t *testing.T) {
	reader := &fakeReader{queue: []fetchResult{{msg: surveyUpdateMessage(t)}}}
	dlq := &fakeDLQ{err: errors.New("dlq unavailable")}

	runConsumer(t, reader, dlq, 1, func(context.Context, events.Envelope) error {
		return errors.New("handler fails")
	})

	if reader.commitCount() != 0 {
		t.Fatal("message must stay unacknowledged when dead-letter routing fails")
	}
}
