// Package filter gates inbound case events on current reference data: only
// events for a known survey of an accepted type and a known collection
// exercise are processed by this deployment.
package filter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

type Reason string

const (
	ReasonUnknownSurvey             Reason = "unknown-survey"
	ReasonUnacceptedSurveyType      Reason = "unaccepted-survey-type"
	ReasonUnknownCollectionExercise Reason = "unknown-collection-exercise"
)

// Decision is computed fresh per event from current reference data; nothing
// is cached between calls.
type Decision struct {
	Accepted bool
	Reason   Reason
}

func accept() Decision {
	return Decision{Accepted: true}
}

func reject(reason Reason) Decision {
	return Decision{Reason: reason}
}

type SurveyLookup interface {
	SurveyByID(ctx context.Context, id uuid.UUID) (model.Survey, bool, error)
}

type CollectionExerciseLookup interface {
	CollectionExerciseByID(ctx context.Context, id uuid.UUID) (model.CollectionExercise, bool, error)
}

type Filter struct {
	surveys       SurveyLookup
	collexes      CollectionExerciseLookup
	acceptedTypes []string
	logger        *slog.Logger
}

func New(surveys SurveyLookup, collexes CollectionExerciseLookup, acceptedTypes []string, logger *slog.Logger) *Filter {
	return &Filter{
		surveys:       surveys,
		collexes:      collexes,
		acceptedTypes: acceptedTypes,
		logger:        logger,
	}
}

// Check reports whether an event referencing the given survey, collection
// exercise and case should be processed. A rejection is a deliberate no-op
// for this deployment, not a failure: it is logged at warning level and the
// event is acknowledged without retry or dead-lettering. A lookup error is
// returned as-is so the caller's retry policy applies.
func (f *Filter) Check(ctx context.Context, surveyID, collexID, caseID uuid.UUID, correlationID string) (Decision, error) {
	survey, found, err := f.surveys.SurveyByID(ctx, surveyID)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		f.warn(ReasonUnknownSurvey, surveyID, collexID, caseID, correlationID)
		return reject(ReasonUnknownSurvey), nil
	}

	if !f.acceptedSurveyType(survey.SampleDefinitionURL) {
		f.warn(ReasonUnacceptedSurveyType, surveyID, collexID, caseID, correlationID)
		return reject(ReasonUnacceptedSurveyType), nil
	}

	_, found, err = f.collexes.CollectionExerciseByID(ctx, collexID)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		f.warn(ReasonUnknownCollectionExercise, surveyID, collexID, caseID, correlationID)
		return reject(ReasonUnknownCollectionExercise), nil
	}

	return accept(), nil
}

// The survey's sample definition URL encodes its type as the file name
// suffix, e.g. ".../social.json" is a social survey.
func (f *Filter) acceptedSurveyType(sampleDefinitionURL string) bool {
	for _, t := range f.acceptedTypes {
		if strings.HasSuffix(sampleDefinitionURL, t+".json") {
			return true
		}
	}
	return false
}

func (f *Filter) warn(reason Reason, surveyID, collexID, caseID uuid.UUID, correlationID string) {
	f.logger.Warn("event rejected by filter",
		"reason", string(reason),
		"survey_id", surveyID,
		"collection_exercise_id", collexID,
		"case_id", caseID,
		"correlation_id", correlationID,
	)
}
