package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

const patientColumns = `patient_id, first_name, last_name, date_of_birth, age, gender,
	contact_email, phone_number, location, condition_summary,
	diagnosed_conditions, current_medications, extraction_confidence,
	current_eligible_trials, future_eligible_trials, predicted_conditions,
	created_at, updated_at`

// PatientRepository is the PostgreSQL implementation of patient.Repository.
type PatientRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewPatientRepository constructs a ready-to-use PatientRepository.
func NewPatientRepository(pool *pgxpool.Pool, logger logging.Logger) *PatientRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PatientRepository{pool: pool, logger: logger.Named("patient_repo")}
}

var _ patient.Repository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(ctx context.Context, p *patient.Profile) error {
	if p.ID.IsZero() {
		p.ID = common.NewID()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Age, p.Gender,
		p.ContactEmail, p.PhoneNumber, p.Location, p.ConditionSummary,
		mustJSON(p.DiagnosedConditions), mustJSON(p.CurrentMedications), p.ExtractionConfidence,
		mustJSON(p.CurrentEligibleTrials), mustJSON(p.FutureEligibleTrials), mustJSON(p.PredictedConditions),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("insert patient failed", logging.Err(err), logging.String("patient_id", p.ID.String()))
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "inserting patient")
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id common.ID) (*patient.Profile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE patient_id = $1`, id)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodePatientNotFound, "patient "+id.String()+" not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "loading patient")
	}
	return p, nil
}

func (r *PatientRepository) GetByPhone(ctx context.Context, phone string) (*patient.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+` FROM patients
		WHERE phone_number = $1
		ORDER BY created_at DESC
		LIMIT 1`, phone)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodePatientNotFound, "no patient with phone "+phone)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "loading patient by phone")
	}
	return p, nil
}

func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (*patient.Profile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+` FROM patients
		WHERE contact_email = $1
		ORDER BY created_at DESC
		LIMIT 1`, email)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodePatientNotFound, "no patient with email "+email)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "loading patient by email")
	}
	return p, nil
}

func (r *PatientRepository) List(ctx context.Context, page common.Pagination) ([]*patient.Profile, error) {
	page.Normalize(200)
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+` FROM patients
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, page.PageSize, page.Offset())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "listing patients")
	}
	defer rows.Close()

	var out []*patient.Profile
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			// One bad row must not abort a batch load.
			r.logger.Warn("skipping unreadable patient row", logging.Err(err))
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "iterating patients")
	}
	return out, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *patient.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET
			first_name = $2, last_name = $3, date_of_birth = $4, age = $5, gender = $6,
			contact_email = $7, phone_number = $8, location = $9, condition_summary = $10,
			diagnosed_conditions = $11, current_medications = $12, extraction_confidence = $13,
			predicted_conditions = $14, updated_at = $15
		WHERE patient_id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Age, p.Gender,
		p.ContactEmail, p.PhoneNumber, p.Location, p.ConditionSummary,
		mustJSON(p.DiagnosedConditions), mustJSON(p.CurrentMedications), p.ExtractionConfidence,
		mustJSON(p.PredictedConditions), p.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "updating patient")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodePatientNotFound, "patient "+p.ID.String()+" not found")
	}
	return nil
}

func (r *PatientRepository) UpsertByPhone(ctx context.Context, p *patient.Profile) (*patient.Profile, error) {
	if p.PhoneNumber == "" {
		r.logger.Warn("no phone number on profile, inserting new record")
		if err := r.Create(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	existing, err := r.GetByPhone(ctx, p.PhoneNumber)
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		if err := r.Update(ctx, p); err != nil {
			return nil, err
		}
		r.logger.Info("updated existing patient",
			logging.String("patient_id", p.ID.String()),
			logging.String("phone", p.PhoneNumber))
		return p, nil
	case apperrors.IsNotFound(err):
		if err := r.Create(ctx, p); err != nil {
			return nil, err
		}
		r.logger.Info("inserted new patient", logging.String("patient_id", p.ID.String()))
		return p, nil
	default:
		return nil, err
	}
}

func (r *PatientRepository) UpdateEligibility(ctx context.Context, id common.ID, current, future []patient.TrialMatch) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET
			current_eligible_trials = $2,
			future_eligible_trials = $3,
			updated_at = now()
		WHERE patient_id = $1`,
		id, mustJSON(current), mustJSON(future),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "updating patient eligibility")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodePatientNotFound, "patient "+id.String()+" not found")
	}
	return nil
}

func (r *PatientRepository) UpdatePredictions(ctx context.Context, id common.ID, conditions []string, future []patient.TrialMatch) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET
			predicted_conditions = $2,
			future_eligible_trials = $3,
			updated_at = now()
		WHERE patient_id = $1`,
		id, mustJSON(conditions), mustJSON(future),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "updating patient predictions")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodePatientNotFound, "patient "+id.String()+" not found")
	}
	return nil
}

func (r *PatientRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE patient_id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "deleting patient")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodePatientNotFound, "patient "+id.String()+" not found")
	}
	return nil
}

func scanPatient(row pgx.Row) (*patient.Profile, error) {
	var (
		p            patient.Profile
		diagnosed    []byte
		medications  []byte
		current      []byte
		future       []byte
		predicted    []byte
	)
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Age, &p.Gender,
		&p.ContactEmail, &p.PhoneNumber, &p.Location, &p.ConditionSummary,
		&diagnosed, &medications, &p.ExtractionConfidence,
		&current, &future, &predicted,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fromJSON(diagnosed, &p.DiagnosedConditions)
	fromJSON(medications, &p.CurrentMedications)
	fromJSON(current, &p.CurrentEligibleTrials)
	fromJSON(future, &p.FutureEligibleTrials)
	fromJSON(predicted, &p.PredictedConditions)
	return &p, nil
}
