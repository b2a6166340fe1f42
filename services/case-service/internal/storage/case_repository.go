package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/caseworks/contactcentre/libs/db"
	"github.com/caseworks/contactcentre/services/case-service/internal/model"
)

type CaseRepository struct {
	pool *db.Pool
}

func NewCaseRepository(pool *db.Pool) *CaseRepository {
	return &CaseRepository{pool: pool}
}

func (r *CaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// UpsertCase converges redeliveries of the same case id onto one row.
// Last write wins: no upstream timestamp or version is compared.
func (r *CaseRepository) UpsertCase(ctx context.Context, tx pgx.Tx, c model.Case) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO cases (
			id, case_ref, case_type, survey_id, collection_exercise_id,
			address_line1, address_line2, address_line3, town_name, postcode, region,
			uprn, estab_type, address_level, address_type, latitude, longitude,
			contact_title, contact_forename, contact_surname, contact_tel_no,
			hand_delivery, refused, address_invalid
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (id) DO UPDATE SET
			case_ref = EXCLUDED.case_ref,
			case_type = EXCLUDED.case_type,
			survey_id = EXCLUDED.survey_id,
			collection_exercise_id = EXCLUDED.collection_exercise_id,
			address_line1 = EXCLUDED.address_line1,
			address_line2 = EXCLUDED.address_line2,
			address_line3 = EXCLUDED.address_line3,
			town_name = EXCLUDED.town_name,
			postcode = EXCLUDED.postcode,
			region = EXCLUDED.region,
			uprn = EXCLUDED.uprn,
			estab_type = EXCLUDED.estab_type,
			address_level = EXCLUDED.address_level,
			address_type = EXCLUDED.address_type,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			contact_title = EXCLUDED.contact_title,
			contact_forename = EXCLUDED.contact_forename,
			contact_surname = EXCLUDED.contact_surname,
			contact_tel_no = EXCLUDED.contact_tel_no,
			hand_delivery = EXCLUDED.hand_delivery,
			refused = EXCLUDED.refused,
			address_invalid = EXCLUDED.address_invalid,
			updated_at = now()
	`,
		c.ID, c.CaseRef, c.CaseType, c.SurveyID, c.CollectionExerciseID,
		c.Address.Line1, c.Address.Line2, c.Address.Line3, c.Address.TownName, c.Address.Postcode, c.Address.Region,
		c.Address.UPRN, c.Address.EstabType, c.Address.AddressLevel, c.Address.AddressType, c.Address.Latitude, c.Address.Longitude,
		c.Contact.Title, c.Contact.Forename, c.Contact.Surname, c.Contact.TelNo,
		c.HandDelivery, c.Refused, c.AddressInvalid,
	)
	return err
}

func (r *CaseRepository) CaseExists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cases WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// CaseByID reads a case inside tx, locking the row for the caller's update.
func (r *CaseRepository) CaseByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (model.Case, bool, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, case_ref, case_type, survey_id, collection_exercise_id,
			address_line1, address_line2, address_line3, town_name, postcode, region,
			uprn, estab_type, address_level, address_type, latitude, longitude,
			contact_title, contact_forename, contact_surname, contact_tel_no,
			hand_delivery, refused, address_invalid, created_at, updated_at
		FROM cases
		WHERE id = $1
		FOR UPDATE
	`, id)

	var c model.Case
	err := row.Scan(
		&c.ID, &c.CaseRef, &c.CaseType, &c.SurveyID, &c.CollectionExerciseID,
		&c.Address.Line1, &c.Address.Line2, &c.Address.Line3, &c.Address.TownName, &c.Address.Postcode, &c.Address.Region,
		&c.Address.UPRN, &c.Address.EstabType, &c.Address.AddressLevel, &c.Address.AddressType, &c.Address.Latitude, &c.Address.Longitude,
		&c.Contact.Title, &c.Contact.Forename, &c.Contact.Surname, &c.Contact.TelNo,
		&c.HandDelivery, &c.Refused, &c.AddressInvalid, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Case{}, false, nil
	}
	if err != nil {
		return model.Case{}, false, err
	}
	return c, true, nil
}
