package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestDecode_CaseUpdate(t *testing.T) {
	caseID := uuid.New()
	msgID := uuid.New()
	raw := []byte(`{
		"header": {"messageId": "` + msgID.String() + `", "correlationId": "corr-1", "dateTime": "2026-02-01T10:00:00Z"},
		"payload": {"caseId": "` + caseID.String() + `", "caseRef": "1000000001", "caseType": "HH"}
	}`)

	env, err := Decode(TypeCaseUpdate, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != TypeCaseUpdate {
		t.Fatalf("expected type %s, got %s", TypeCaseUpdate, env.Type)
	}
	if env.Header.MessageID != msgID {
		t.Fatalf("expected message id %s, got %s", msgID, env.Header.MessageID)
	}
	if env.Header.CorrelationID != "corr-1" {
		t.Fatalf("expected correlation id corr-1, got %q", env.Header.CorrelationID)
	}
	if env.CaseUpdate == nil || env.CaseUpdate.CaseID != caseID {
		t.Fatalf("case payload not decoded: %+v", env.CaseUpdate)
	}
	if env.UacUpdate != nil || env.SurveyUpdate != nil || env.CollectionExerciseUpdate != nil {
		t.Fatal("expected only the case payload to be set")
	}
}

func TestDecode_UacUpdate(t *testing.T) {
	caseID := uuid.New()
	raw := []byte(`{
		"header": {"messageId": "` + uuid.NewString() + `", "dateTime": "2026-02-01T10:00:00Z"},
		"payload": {"caseId": "` + caseID.String() + `", "uac": "abcd1234efgh5678", "questionnaireId": "9112", "active": true}
	}`)

	env, err := Decode(TypeUacUpdate, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.UacUpdate == nil || env.UacUpdate.CaseID != caseID || !env.UacUpdate.Active {
		t.Fatalf("uac payload not decoded: %+v", env.UacUpdate)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode(TypeCaseUpdate, []byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed message")
	}
	if _, err := Decode(TypeCaseUpdate, []byte(`{"header": {}}`)); err == nil {
		t.Fatal("expected error for missing payload")
	}
}

func TestDecode_UnknownType(t *testing.T) {
	if _, err := Decode("SOMETHING_ELSE", []byte(`{"header":{},"payload":{}}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestNewOutbound_Header(t *testing.T) {
	out := NewOutbound("corr-9", "agent.smith", RefusalReceived{CaseID: uuid.New(), Type: "HARD_REFUSAL"})
	if out.Header.MessageID == uuid.Nil {
		t.Fatal("expected generated message id")
	}
	if out.Header.CorrelationID != "corr-9" || out.Header.OriginatingUser != "agent.smith" {
		t.Fatalf("unexpected header: %+v", out.Header)
	}

	body, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var round wireMessage
	if err := json.Unmarshal(body, &round); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if round.Header.MessageID != out.Header.MessageID {
		t.Fatal("header lost in round trip")
	}
}
