package ingest

import (
	"github.com/caseworks/contactcentre/services/case-service/internal/events"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

// Field correspondences between wire payloads and entity records are spelled
// out per pair, so each mapping is statically checked and testable.

func caseFromPayload(p events.CaseUpdate) model.Case {
	return model.Case{
		ID:                   p.CaseID,
		CaseRef:              p.CaseRef,
		CaseType:             p.CaseType,
		SurveyID:             p.SurveyID,
		CollectionExerciseID: p.CollectionExerciseID,
		Address: model.Address{
			Line1:        p.Address.AddressLine1,
			Line2:        p.Address.AddressLine2,
			Line3:        p.Address.AddressLine3,
			TownName:     p.Address.TownName,
			Postcode:     p.Address.Postcode,
			Region:       p.Address.Region,
			UPRN:         p.Address.UPRN,
			EstabType:    p.Address.EstabType,
			AddressLevel: p.Address.AddressLevel,
			AddressType:  p.Address.AddressType,
			Latitude:     p.Address.Latitude,
			Longitude:    p.Address.Longitude,
		},
		Contact: model.Contact{
			Title:    p.Contact.Title,
			Forename: p.Contact.Forename,
			Surname:  p.Contact.Surname,
			TelNo:    p.Contact.TelNo,
		},
		HandDelivery:   p.HandDelivery,
		Refused:        p.Refused,
		AddressInvalid: p.AddressInvalid,
	}
}

func uacFromPayload(p events.UacUpdate) model.UAC {
	return model.UAC{
		CaseID:          p.CaseID,
		UAC:             p.UAC,
		QuestionnaireID: p.QuestionnaireID,
		FormType:        p.FormType,
		Active:          p.Active,
	}
}

func surveyFromPayload(p events.SurveyUpdate) model.Survey {
	return model.Survey{
		ID:                  p.SurveyID,
		Name:                p.Name,
		SampleDefinitionURL: p.SampleDefinitionURL,
	}
}

func collectionExerciseFromPayload(p events.CollectionExerciseUpdate) model.CollectionExercise {
	return model.CollectionExercise{
		ID:        p.CollectionExerciseID,
		SurveyID:  p.SurveyID,
		Name:      p.Name,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	}
}
