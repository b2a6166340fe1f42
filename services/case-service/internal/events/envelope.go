// Package events defines the message contracts shared with the upstream
// system of record: the four inbound update kinds and the outbound events
// produced by local case operations.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Inbound event types, one per upstream topic.
const (
	TypeCaseUpdate               = "CASE_UPDATE"
	TypeUacUpdate                = "UAC_UPDATE"
	TypeSurveyUpdate             = "SURVEY_UPDATE"
	TypeCollectionExerciseUpdate = "COLLECTION_EXERCISE_UPDATE"
)

// Outbound event types published through the outbox.
const (
	TypeRefusalReceived        = "REFUSAL_RECEIVED"
	TypeFulfilmentRequested    = "FULFILMENT_REQUESTED"
	TypeContactDetailsModified = "CONTACT_DETAILS_MODIFIED"
)

// Header is carried on every message. MessageID identifies the message;
// CorrelationID is used only for logging and tracing.
type Header struct {
	MessageID       uuid.UUID `json:"messageId"`
	CorrelationID   string    `json:"correlationId,omitempty"`
	OriginatingUser string    `json:"originatingUser,omitempty"`
	DateTime        time.Time `json:"dateTime"`
}

// Envelope is the typed union an inbound message deserializes into. Exactly
// one payload pointer is set, matching Type.
type Envelope struct {
	Header Header
	Type   string

	CaseUpdate               *CaseUpdate
	UacUpdate                *UacUpdate
	SurveyUpdate             *SurveyUpdate
	CollectionExerciseUpdate *CollectionExerciseUpdate
}

type wireMessage struct {
	Header  Header          `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses raw message bytes into an Envelope for the given event type.
// The event type comes from the topic binding, not from the payload.
func Decode(eventType string, data []byte) (Envelope, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("decode %s message: %w", eventType, err)
	}
	if len(wire.Payload) == 0 {
		return Envelope{}, fmt.Errorf("decode %s message: missing payload", eventType)
	}

	env := Envelope{Header: wire.Header, Type: eventType}
	var err error
	switch eventType {
	case TypeCaseUpdate:
		env.CaseUpdate = &CaseUpdate{}
		err = json.Unmarshal(wire.Payload, env.CaseUpdate)
	case TypeUacUpdate:
		env.UacUpdate = &UacUpdate{}
		err = json.Unmarshal(wire.Payload, env.UacUpdate)
	case TypeSurveyUpdate:
		env.SurveyUpdate = &SurveyUpdate{}
		err = json.Unmarshal(wire.Payload, env.SurveyUpdate)
	case TypeCollectionExerciseUpdate:
		env.CollectionExerciseUpdate = &CollectionExerciseUpdate{}
		err = json.Unmarshal(wire.Payload, env.CollectionExerciseUpdate)
	default:
		return Envelope{}, fmt.Errorf("unknown event type %q", eventType)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return env, nil
}

// Outbound wraps an outbound payload with its header for publishing. The
// acting user is recorded explicitly on the header rather than read from any
// ambient request state.
type Outbound struct {
	Header  Header `json:"header"`
	Payload any    `json:"payload"`
}

func NewOutbound(correlationID, originatingUser string, payload any) Outbound {
	return Outbound{
		Header: Header{
			MessageID:       uuid.New(),
			CorrelationID:   correlationID,
			OriginatingUser: originatingUser,
			DateTime:        time.Now().UTC(),
		},
		Payload: payload,
	}
}
