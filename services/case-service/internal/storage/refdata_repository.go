package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/libs/db"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

// RefDataRepository holds the survey and collection-exercise reference data
// the event filter reads and the inbound pipeline maintains.
type RefDataRepository struct {
	pool *db.Pool
}

func NewRefDataRepository(pool *db.Pool) *RefDataRepository {
	return &RefDataRepository{pool: pool}
}

func (r *RefDataRepository) UpsertSurvey(ctx context.Context, tx pgx.Tx, s model.Survey) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO surveys (id, name, sample_definition_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			sample_definition_url = EXCLUDED.sample_definition_url,
			updated_at = now()
	`, s.ID, s.Name, s.SampleDefinitionURL)
	return err
}

func (r *RefDataRepository) UpsertCollectionExercise(ctx context.Context, tx pgx.Tx, c model.CollectionExercise) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO collection_exercises (id, survey_id, name, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			survey_id = EXCLUDED.survey_id,
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = now()
	`, c.ID, c.SurveyID, c.Name, c.StartDate, c.EndDate)
	return err
}

// SurveyByID reads outside any transaction; the filter recomputes its
// decision from current reference data on every event.
func (r *RefDataRepository) SurveyByID(ctx context.Context, id uuid.UUID) (model.Survey, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, sample_definition_url, updated_at
		FROM surveys
		WHERE id = $1
	`, id)

	var s model.Survey
	err := row.Scan(&s.ID, &s.Name, &s.SampleDefinitionURL, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Survey{}, false, nil
	}
	if err != nil {
		return model.Survey{}, false, err
	}
	return s, true, nil
}

func (r *RefDataRepository) CollectionExerciseByID(ctx context.Context, id uuid.UUID) (model.CollectionExercise, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, survey_id, name, start_date, end_date, updated_at
		FROM collection_exercises
		WHERE id = $1
	`, id)

	var c model.CollectionExercise
	err := row.Scan(&c.ID, &c.SurveyID, &c.Name, &c.StartDate, &c.EndDate, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CollectionExercise{}, false, nil
	}
	if err != nil {
		return model.CollectionExercise{}, false, err
	}
	return c, true, nil
}
