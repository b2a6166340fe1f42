package filter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

type fakeRefData struct {
	surveys   map[uuid.UUID]model.Survey
	collexes  map[uuid.UUID]model.CollectionExercise
	lookupErr error
}

func (f *fakeRefData) SurveyByID(_ context.Context, id uuid.UUID) (model.Survey, bool, error) {
	if f.lookupErr != nil {
		return model.Survey{}, false, f.lookupErr
	}
	s, ok := f.surveys[id]
	return s, ok, nil
}

func (f *fakeRefData) CollectionExerciseByID(_ context.Context, id uuid.UUID) (model.CollectionExercise, bool, error) {
	if f.lookupErr != nil {
		return model.CollectionExercise{}, false, f.lookupErr
	}
	c, ok := f.collexes[id]
	return c, ok, nil
}

func newTestFilter(ref *fakeRefData, acceptedTypes ...string) *Filter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(ref, ref, acceptedTypes, logger)
}

func TestCheck_UnknownSurvey(t *testing.T) {
	ref := &fakeRefData{surveys: map[uuid.UUID]model.Survey{}}
	f := newTestFilter(ref, "social")

	dec, err := f.Check(context.Background(), uuid.New(), uuid.New(), uuid.New(), "corr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Accepted || dec.Reason != ReasonUnknownSurvey {
		t.Fatalf("expected unknown-survey rejection, got %+v", dec)
	}
}

func TestCheck_AcceptedSurveyType(t *testing.T) {
	surveyID := uuid.New()
	collexID := uuid.New()
	ref := &fakeRefData{
		surveys: map[uuid.UUID]model.Survey{
			surveyID: {ID: surveyID, SampleDefinitionURL: "https://x/thing/social.json"},
		},
		collexes: map[uuid.UUID]model.CollectionExercise{
			collexID: {ID: collexID, SurveyID: surveyID},
		},
	}
	f := newTestFilter(ref, "social", "business")

	dec, err := f.Check(context.Background(), surveyID, collexID, uuid.New(), "corr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Accepted {
		t.Fatalf("expected accept, got %+v", dec)
	}
}

func TestCheck_UnacceptedSurveyType(t *testing.T) {
	surveyID := uuid.New()
	collexID := uuid.New()
	ref := &fakeRefData{
		surveys: map[uuid.UUID]model.Survey{
			surveyID: {ID: surveyID, SampleDefinitionURL: "https://x/thing/census.health.json"},
		},
		collexes: map[uuid.UUID]model.CollectionExercise{
			collexID: {ID: collexID, SurveyID: surveyID},
		},
	}
	f := newTestFilter(ref, "social")

	dec, err := f.Check(context.Background(), surveyID, collexID, uuid.New(), "corr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Accepted || dec.Reason != ReasonUnacceptedSurveyType {
		t.Fatalf("expected unaccepted-survey-type rejection, got %+v", dec)
	}
}

func TestCheck_UnknownCollectionExercise(t *testing.T) {
	surveyID := uuid.New()
	ref := &fakeRefData{
		surveys: map[uuid.UUID]model.Survey{
			surveyID: {ID: surveyID, SampleDefinitionURL: "https://x/thing/social.json"},
		},
		collexes: map[uuid.UUID]model.CollectionExercise{},
	}
	f := newTestFilter(ref, "social")

	dec, err := f.Check(context.Background(), surveyID, uuid.New(), uuid.New(), "corr")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Accepted || dec.Reason != ReasonUnknownCollectionExercise {
		t.Fatalf("expected unknown-collection-exercise rejection, got %+v", dec)
	}
}

func TestCheck_LookupErrorPropagates(t *testing.T) {
	ref := &fakeRefData{lookupErr: errors.New("db down")}
	f := newTestFilter(ref, "social")

	if _, err := f.Check(context.Background(), uuid.New(), uuid.New(), uuid.New(), "corr"); err == nil {
		t.Fatal("expected lookup error to propagate for retry")
	}
}
