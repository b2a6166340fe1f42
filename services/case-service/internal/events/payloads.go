package events

import (
	"time"

	"github.com/google/uuid"
)

type ContactPayload struct {
	Title    string `json:"title,omitempty"`
	Forename string `json:"forename,omitempty"`
	Surname  string `json:"surname,omitempty"`
	TelNo    string `json:"telNo,omitempty"`
}

type AddressPayload struct {
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	AddressLine3 string `json:"addressLine3,omitempty"`
	TownName     string `json:"townName,omitempty"`
	Postcode     string `json:"postcode,omitempty"`
	Region       string `json:"region,omitempty"`
	UPRN         string `json:"uprn,omitempty"`
	EstabType    string `json:"estabType,omitempty"`
	AddressLevel string `json:"addressLevel,omitempty"`
	AddressType  string `json:"addressType,omitempty"`
	Latitude     string `json:"latitude,omitempty"`
	Longitude    string `json:"longitude,omitempty"`
}

// CaseUpdate mirrors the upstream collection-case aggregate.
type CaseUpdate struct {
	CaseID               uuid.UUID      `json:"caseId"`
	CaseRef              string         `json:"caseRef"`
	CaseType             string         `json:"caseType"`
	SurveyID             uuid.UUID      `json:"surveyId"`
	CollectionExerciseID uuid.UUID      `json:"collectionExerciseId"`
	Address              AddressPayload `json:"address"`
	Contact              ContactPayload `json:"contact"`
	HandDelivery         bool           `json:"handDelivery"`
	Refused              bool           `json:"refused"`
	AddressInvalid       bool           `json:"addressInvalid"`
	CreatedDateTime      time.Time      `json:"createdDateTime"`
}

type UacUpdate struct {
	CaseID          uuid.UUID `json:"caseId"`
	UAC             string    `json:"uac"`
	QuestionnaireID string    `json:"questionnaireId"`
	FormType        string    `json:"formType"`
	Active          bool      `json:"active"`
}

type SurveyUpdate struct {
	SurveyID            uuid.UUID `json:"surveyId"`
	Name                string    `json:"name"`
	SampleDefinitionURL string    `json:"sampleDefinitionUrl"`
}

type CollectionExerciseUpdate struct {
	CollectionExerciseID uuid.UUID `json:"collectionExerciseId"`
	SurveyID             uuid.UUID `json:"surveyId"`
	Name                 string    `json:"name"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
}

// RefusalReceived is published when an operator records that a respondent
// refused to take part.
type RefusalReceived struct {
	CaseID        uuid.UUID `json:"caseId"`
	Type          string    `json:"type"`
	AgentID       string    `json:"agentId"`
	IsHouseholder bool      `json:"isHouseholder"`
}

type FulfilmentRequested struct {
	CaseID         uuid.UUID      `json:"caseId"`
	FulfilmentCode string         `json:"fulfilmentCode"`
	Contact        ContactPayload `json:"contact"`
}

type ContactDetailsModified struct {
	CaseID  uuid.UUID      `json:"caseId"`
	Contact ContactPayload `json:"contact"`
}
