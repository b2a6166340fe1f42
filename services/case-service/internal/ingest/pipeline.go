package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/services/case-service/internal/events"
	"github.com/caseworks/contactcentre/services/case-service/internal/filter"
)

// Filterer gates case events on reference data before any transactional work.
type Filterer interface {
	Check(ctx context.Context, surveyID, collexID, caseID uuid.UUID, correlationID string) (filter.Decision, error)
}

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pipeline is the per-message processing path the consumers invoke: filter,
// then the matching upsert handler inside a fresh transaction. A returned
// error means the attempt failed as a whole and may be retried; a filtered
// or discarded event returns nil so the message is acknowledged.
type Pipeline struct {
	pool     TxBeginner
	filter   Filterer
	handlers *Handlers
}

func NewPipeline(pool TxBeginner, f Filterer, handlers *Handlers) *Pipeline {
	return &Pipeline{
		pool:     pool,
		filter:   f,
		handlers: handlers,
	}
}

func (p *Pipeline) Process(ctx context.Context, env events.Envelope) error {
	// Only case events carry the survey/collection-exercise references the
	// filter checks. UAC events are guarded by the case-exists rule instead,
	// and survey/collection-exercise events are the reference data itself.
	if env.Type == events.TypeCaseUpdate {
		dec, err := p.filter.Check(ctx,
			env.CaseUpdate.SurveyID,
			env.CaseUpdate.CollectionExerciseID,
			env.CaseUpdate.CaseID,
			env.Header.CorrelationID,
		)
		if err != nil {
			return err
		}
		if !dec.Accepted {
			return nil
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	switch env.Type {
	case events.TypeCaseUpdate:
		err = p.handlers.HandleCaseUpdate(ctx, tx, *env.CaseUpdate)
	case events.TypeUacUpdate:
		err = p.handlers.HandleUacUpdate(ctx, tx, *env.UacUpdate)
	case events.TypeSurveyUpdate:
		err = p.handlers.HandleSurveyUpdate(ctx, tx, *env.SurveyUpdate)
	case events.TypeCollectionExerciseUpdate:
		err = p.handlers.HandleCollectionExerciseUpdate(ctx, tx, *env.CollectionExerciseUpdate)
	default:
		return fmt.Errorf("no handler for event type %q", env.Type)
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
