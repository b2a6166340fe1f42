package cases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/services/case-service/internal/events"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

type recordedTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *recordedTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *recordedTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type enqueued struct {
	eventType    string
	partitionKey string
	payload      events.Outbound
}

type fakeStore struct {
	cases    map[uuid.UUID]model.Case
	tx       *recordedTx
	enqueues []enqueued

	enqueueErr error
}

func newFakeStore(cases ...model.Case) *fakeStore {
	s := &fakeStore{cases: make(map[uuid.UUID]model.Case)}
	for _, c := range cases {
		s.cases[c.ID] = c
	}
	return s
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) {
	s.tx = &recordedTx{}
	return s.tx, nil
}

func (s *fakeStore) CaseByID(_ context.Context, _ pgx.Tx, id uuid.UUID) (model.Case, bool, error) {
	c, ok := s.cases[id]
	return c, ok, nil
}

func (s *fakeStore) UpsertCase(_ context.Context, _ pgx.Tx, c model.Case) error {
	s.cases[c.ID] = c
	return nil
}

func (s *fakeStore) Enqueue(_ context.Context, _ pgx.Tx, eventType, partitionKey string, payload any) (uuid.UUID, error) {
	if s.enqueueErr != nil {
		return uuid.Nil, s.enqueueErr
	}
	s.enqueues = append(s.enqueues, enqueued{
		eventType:    eventType,
		partitionKey: partitionKey,
		payload:      payload.(events.Outbound),
	})
	return uuid.New(), nil
}

func testService(store *fakeStore) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, store)
}

func TestSubmitRefusal_MarksCaseAndEnqueuesEvent(t *testing.T) {
	c := model.Case{ID: uuid.New(), CaseRef: "1000000000001"}
	store := newFakeStore(c)
	svc := testService(store)

	agent := Agent{UserID: "agent-17", CorrelationID: "corr-9"}
	if err := svc.SubmitRefusal(context.Background(), c.ID, "HARD_REFUSAL", true, agent); err != nil {
		t.Fatalf("SubmitRefusal: %v", err)
	}

	if !store.cases[c.ID].Refused {
		t.Fatal("case was not marked refused")
	}
	if !store.tx.committed {
		t.Fatal("transaction was not committed")
	}
	if len(store.enqueues) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(store.enqueues))
	}

	e := store.enqueues[0]
	if e.eventType != events.TypeRefusalReceived {
		t.Fatalf("unexpected event type %q", e.eventType)
	}
	if e.partitionKey != c.ID.String() {
		t.Fatalf("partition key %q does not match case id", e.partitionKey)
	}
	payload := e.payload.Payload.(events.RefusalReceived)
	if payload.Type != "HARD_REFUSAL" || !payload.IsHouseholder || payload.AgentID != "agent-17" {
		t.Fatalf("unexpected refusal payload %+v", payload)
	}
	if e.payload.Header.CorrelationID != "corr-9" || e.payload.Header.OriginatingUser != "agent-17" {
		t.Fatalf("unexpected outbound header %+v", e.payload.Header)
	}
}

func TestSubmitRefusal_UnknownCase(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	err := svc.SubmitRefusal(context.Background(), uuid.New(), "HARD_REFUSAL", false, Agent{UserID: "agent-1"})
	if !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
	if len(store.enqueues) != 0 {
		t.Fatal("no event must be enqueued for an unknown case")
	}
	if !store.tx.rolledBack {
		t.Fatal("transaction was not rolled back")
	}
}

func TestRequestFulfilment_EnqueuesWithoutMutatingCase(t *testing.T) {
	c := model.Case{ID: uuid.New(), Contact: model.Contact{Forename: "Ann", Surname: "Example"}}
	store := newFakeStore(c)
	svc := testService(store)

	if err := svc.RequestFulfilment(context.Background(), c.ID, "P_OR_H1", Agent{UserID: "agent-2"}); err != nil {
		t.Fatalf("RequestFulfilment: %v", err)
	}

	if store.cases[c.ID] != c {
		t.Fatal("fulfilment request must not change the case row")
	}
	if len(store.enqueues) != 1 {
		t.Fatalf("expected 1 enqueued event, got %d", len(store.enqueues))
	}
	payload := store.enqueues[0].payload.Payload.(events.FulfilmentRequested)
	if payload.FulfilmentCode != "P_OR_H1" || payload.Contact.Surname != "Example" {
		t.Fatalf("unexpected fulfilment payload %+v", payload)
	}
}

func TestRequestFulfilment_RejectsEmptyCode(t *testing.T) {
	store := newFakeStore()
	svc := testService(store)

	err := svc.RequestFulfilment(context.Background(), uuid.New(), "", Agent{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if store.tx != nil {
		t.Fatal("validation failures must not open a transaction")
	}
}

func TestModifyContactDetails_UpdatesCaseAndEnqueues(t *testing.T) {
	c := model.Case{ID: uuid.New(), Contact: model.Contact{Forename: "Old"}}
	store := newFakeStore(c)
	svc := testService(store)

	contact := model.Contact{Title: "Ms", Forename: "New", Surname: "Name", TelNo: "01234 567890"}
	if err := svc.ModifyContactDetails(context.Background(), c.ID, contact, Agent{UserID: "agent-3"}); err != nil {
		t.Fatalf("ModifyContactDetails: %v", err)
	}

	if store.cases[c.ID].Contact != contact {
		t.Fatalf("contact not updated, got %+v", store.cases[c.ID].Contact)
	}
	if len(store.enqueues) != 1 || store.enqueues[0].eventType != events.TypeContactDetailsModified {
		t.Fatalf("unexpected enqueues %+v", store.enqueues)
	}
}

func TestModifyContactDetails_RejectsEmptyContact(t *testing.T) {
	store := newFakeStore(model.Case{ID: uuid.New()})
	svc := testService(store)

	err := svc.ModifyContactDetails(context.Background(), uuid.New(), model.Contact{}, Agent{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSubmitRefusal_EnqueueFailureRollsBack(t *testing.T) {
	c := model.Case{ID: uuid.New()}
	store := newFakeStore(c)
	store.enqueueErr = errors.New("outbox insert failed")
	svc := testService(store)

	if err := svc.SubmitRefusal(context.Background(), c.ID, "HARD_REFUSAL", false, Agent{}); err == nil {
		t.Fatal("expected enqueue failure to surface")
	}
	if store.tx.committed {
		t.Fatal("transaction must not commit when the outbox insert fails")
	}
	if !store.tx.rolledBack {
		t.Fatal("transaction was not rolled back")
	}
}
