// Package ingest applies inbound update events to the local store. Handlers
// are idempotent by natural key: redelivery of the same event converges onto
// the same row instead of duplicating it.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/services/case-service/internal/events"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

type CaseStore interface {
	UpsertCase(ctx context.Context, tx pgx.Tx, c model.Case) error
	CaseExists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

type UacStore interface {
	UpsertUAC(ctx context.Context, tx pgx.Tx, u model.UAC) error
}

type RefDataStore interface {
	UpsertSurvey(ctx context.Context, tx pgx.Tx, s model.Survey) error
	UpsertCollectionExercise(ctx context.Context, tx pgx.Tx, c model.CollectionExercise) error
}

type Handlers struct {
	cases   CaseStore
	uacs    UacStore
	refData RefDataStore
	logger  *slog.Logger
}

func NewHandlers(cases CaseStore, uacs UacStore, refData RefDataStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		cases:   cases,
		uacs:    uacs,
		refData: refData,
		logger:  logger,
	}
}

// HandleCaseUpdate upserts the case aggregate by case id. Ordering is trusted
// from the upstream publisher: a late event overwrites newer local state.
func (h *Handlers) HandleCaseUpdate(ctx context.Context, tx pgx.Tx, p events.CaseUpdate) error {
	if p.CaseID == uuid.Nil {
		return fmt.Errorf("case update without case id")
	}
	return h.cases.UpsertCase(ctx, tx, caseFromPayload(p))
}

// HandleUacUpdate upserts the UAC keyed by its case id. A UAC arriving before
// its case is discarded with a warning rather than buffered: inbound ordering
// dependencies are not enforced here.
func (h *Handlers) HandleUacUpdate(ctx context.Context, tx pgx.Tx, p events.UacUpdate) error {
	if p.CaseID == uuid.Nil {
		return fmt.Errorf("uac update without case id")
	}
	exists, err := h.cases.CaseExists(ctx, tx, p.CaseID)
	if err != nil {
		return err
	}
	if !exists {
		h.logger.Warn("uac update discarded, case not found",
			"case_id", p.CaseID,
			"questionnaire_id", p.QuestionnaireID,
		)
		return nil
	}
	return h.uacs.UpsertUAC(ctx, tx, uacFromPayload(p))
}

func (h *Handlers) HandleSurveyUpdate(ctx context.Context, tx pgx.Tx, p events.SurveyUpdate) error {
	if p.SurveyID == uuid.Nil {
		return fmt.Errorf("survey update without survey id")
	}
	return h.refData.UpsertSurvey(ctx, tx, surveyFromPayload(p))
}

func (h *Handlers) HandleCollectionExerciseUpdate(ctx context.Context, tx pgx.Tx, p events.CollectionExerciseUpdate) error {
	if p.CollectionExerciseID == uuid.Nil {
		return fmt.Errorf("collection exercise update without id")
	}
	return h.refData.UpsertCollectionExercise(ctx, tx, collectionExerciseFromPayload(p))
}
