package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/libs/db"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

type UacRepository struct {
	pool *db.Pool
}

func NewUacRepository(pool *db.Pool) *UacRepository {
	return &UacRepository{pool: pool}
}

// UpsertUAC is keyed by the referenced case id: a case has one current UAC
// and redelivered events converge onto the same row.
func (r *UacRepository) UpsertUAC(ctx context.Context, tx pgx.Tx, u model.UAC) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO uacs (case_id, uac, questionnaire_id, form_type, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id) DO UPDATE SET
			uac = EXCLUDED.uac,
			questionnaire_id = EXCLUDED.questionnaire_id,
			form_type = EXCLUDED.form_type,
			active = EXCLUDED.active,
			updated_at = now()
	`, u.CaseID, u.UAC, u.QuestionnaireID, u.FormType, u.Active)
	return err
}
