// Package model holds the entity records owned by the case service's local
// store. Event-sourced fields are mutated only by the inbound pipeline; the
// case API additionally drives local changes to Case.
package model

import (
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	Title    string
	Forename string
	Surname  string
	TelNo    string
}

type Address struct {
	Line1        string
	Line2        string
	Line3        string
	TownName     string
	Postcode     string
	Region       string
	UPRN         string
	EstabType    string
	AddressLevel string
	AddressType  string
	Latitude     string
	Longitude    string
}

// Case is the local projection of an upstream case aggregate, keyed by the
// upstream case id.
type Case struct {
	ID                   uuid.UUID
	CaseRef              string
	CaseType             string
	SurveyID             uuid.UUID
	CollectionExerciseID uuid.UUID
	Address              Address
	Contact              Contact
	HandDelivery         bool
	Refused              bool
	AddressInvalid       bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// UAC is the unique access code issued for a case. One UAC row per case;
// redelivered events converge onto the same row.
type UAC struct {
	CaseID          uuid.UUID
	UAC             string
	QuestionnaireID string
	FormType        string
	Active          bool
	UpdatedAt       time.Time
}

type Survey struct {
	ID                  uuid.UUID
	Name                string
	SampleDefinitionURL string
	UpdatedAt           time.Time
}

// CollectionExercise is a bounded operational run of a survey.
type CollectionExercise struct {
	ID        uuid.UUID
	SurveyID  uuid.UUID
	Name      string
	StartDate time.Time
	EndDate   time.Time
	UpdatedAt time.Time
}
