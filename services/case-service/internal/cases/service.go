// Package cases implements the operator-facing case actions. Every action
// mutates the local case row and enqueues its outbound event in the same
// transaction, so the event is published if and only if the change commits.
package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/services/case-service/internal/events"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

var (
	ErrCaseNotFound   = errors.New("case not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// Agent identifies the operator performing an action. It is passed explicitly
// on every call rather than carried in ambient request state.
type Agent struct {
	UserID        string
	CorrelationID string
}

type CaseStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CaseByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Case, bool, error)
	UpsertCase(ctx context.Context, tx pgx.Tx, c model.Case) error
}

type Outbox interface {
	Enqueue(ctx context.Context, tx pgx.Tx, eventType, partitionKey string, payload any) (uuid.UUID, error)
}

type Service struct {
	store  CaseStore
	outbox Outbox
	logger *slog.Logger
}

func NewService(logger *slog.Logger, store CaseStore, outbox Outbox) *Service {
	return &Service{store: store, outbox: outbox, logger: logger}
}

// SubmitRefusal marks the case as refused and enqueues a REFUSAL_RECEIVED
// event for the upstream system of record.
func (s *Service) SubmitRefusal(ctx context.Context, caseID uuid.UUID, refusalType string, isHouseholder bool, agent Agent) error {
	if refusalType == "" {
		return fmt.Errorf("%w: refusal type is required", ErrInvalidRequest)
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := s.store.CaseByID(ctx, tx, caseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCaseNotFound
		}

		c.Refused = true
		if err := s.store.UpsertCase(ctx, tx, c); err != nil {
			return err
		}

		out := events.NewOutbound(agent.CorrelationID, agent.UserID, events.RefusalReceived{
			CaseID:        caseID,
			Type:          refusalType,
			AgentID:       agent.UserID,
			IsHouseholder: isHouseholder,
		})
		eventID, err := s.outbox.Enqueue(ctx, tx, events.TypeRefusalReceived, caseID.String(), out)
		if err != nil {
			return err
		}

		s.logger.Info("refusal submitted",
			"case_id", caseID,
			"event_id", eventID,
			"refusal_type", refusalType,
			"user", agent.UserID)
		return nil
	})
}

// RequestFulfilment enqueues a FULFILMENT_REQUESTED event for an existing
// case. The case row itself is not changed; fulfilment state lives upstream.
func (s *Service) RequestFulfilment(ctx context.Context, caseID uuid.UUID, fulfilmentCode string, agent Agent) error {
	if fulfilmentCode == "" {
		return fmt.Errorf("%w: fulfilment code is required", ErrInvalidRequest)
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := s.store.CaseByID(ctx, tx, caseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCaseNotFound
		}

		out := events.NewOutbound(agent.CorrelationID, agent.UserID, events.FulfilmentRequested{
			CaseID:         caseID,
			FulfilmentCode: fulfilmentCode,
			Contact:        contactPayload(c.Contact),
		})
		eventID, err := s.outbox.Enqueue(ctx, tx, events.TypeFulfilmentRequested, caseID.String(), out)
		if err != nil {
			return err
		}

		s.logger.Info("fulfilment requested",
			"case_id", caseID,
			"event_id", eventID,
			"fulfilment_code", fulfilmentCode,
			"user", agent.UserID)
		return nil
	})
}

// ModifyContactDetails replaces the contact details held against the case and
// enqueues a CONTACT_DETAILS_MODIFIED event.
func (s *Service) ModifyContactDetails(ctx context.Context, caseID uuid.UUID, contact model.Contact, agent Agent) error {
	if contact == (model.Contact{}) {
		return fmt.Errorf("%w: no contact details supplied", ErrInvalidRequest)
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := s.store.CaseByID(ctx, tx, caseID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCaseNotFound
		}

		c.Contact = contact
		if err := s.store.UpsertCase(ctx, tx, c); err != nil {
			return err
		}

		out := events.NewOutbound(agent.CorrelationID, agent.UserID, events.ContactDetailsModified{
			CaseID:  caseID,
			Contact: contactPayload(contact),
		})
		eventID, err := s.outbox.Enqueue(ctx, tx, events.TypeContactDetailsModified, caseID.String(), out)
		if err != nil {
			return err
		}

		s.logger.Info("contact details modified",
			"case_id", caseID,
			"event_id", eventID,
			"user", agent.UserID)
		return nil
	})
}

func (s *Service) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin case transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func contactPayload(c model.Contact) events.ContactPayload {
	return events.ContactPayload{
		Title:    c.Title,
		Forename: c.Forename,
		Surname:  c.Surname,
		TelNo:    c.TelNo,
	}
}
