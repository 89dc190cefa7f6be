package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

const trialColumns = `trial_id, nct_id, title, phase, sponsor, condition, status, location,
	start_date, end_date, min_age, max_age, gender, eligibility_criteria,
	eligible_patients, future_eligible_patients, created_at, updated_at`

// TrialRepository is the PostgreSQL implementation of trial.Repository.
type TrialRepository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewTrialRepository constructs a ready-to-use TrialRepository.
func NewTrialRepository(pool *pgxpool.Pool, logger logging.Logger) *TrialRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TrialRepository{pool: pool, logger: logger.Named("trial_repo")}
}

var _ trial.Repository = (*TrialRepository)(nil)

func (r *TrialRepository) Create(ctx context.Context, rec *trial.Record) error {
	if rec.ID.IsZero() {
		rec.ID = common.NewID()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO trials (`+trialColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		rec.ID, rec.NCTID, rec.Title, rec.Phase, rec.Sponsor, rec.Condition, rec.Status, rec.Location,
		rec.StartDate, rec.EndDate, rec.MinAge, rec.MaxAge, rec.Gender, rec.EligibilityCriteria,
		mustJSON(rec.EligiblePatients), mustJSON(rec.FutureEligiblePatients),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("insert trial failed", logging.Err(err), logging.String("title", rec.Title))
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "inserting trial")
	}
	return nil
}

func (r *TrialRepository) GetByID(ctx context.Context, id common.ID) (*trial.Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+trialColumns+` FROM trials WHERE trial_id = $1`, id)
	rec, err := scanTrial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodeTrialNotFound, "trial "+id.String()+" not found")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "loading trial")
	}
	return rec, nil
}

func (r *TrialRepository) GetByNCTID(ctx context.Context, nctID string) (*trial.Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+trialColumns+` FROM trials
		WHERE nct_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, nctID)
	rec, err := scanTrial(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.New(apperrors.ErrCodeTrialNotFound, "no trial with nct id "+nctID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "loading trial by nct id")
	}
	return rec, nil
}

func (r *TrialRepository) List(ctx context.Context, page common.Pagination) ([]*trial.Record, error) {
	page.Normalize(200)
	rows, err := r.pool.Query(ctx, `
		SELECT `+trialColumns+` FROM trials
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, page.PageSize, page.Offset())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "listing trials")
	}
	defer rows.Close()

	var out []*trial.Record
	for rows.Next() {
		rec, err := scanTrial(rows)
		if err != nil {
			// One bad row must not abort a batch load.
			r.logger.Warn("skipping unreadable trial row", logging.Err(err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "iterating trials")
	}
	return out, nil
}

func (r *TrialRepository) Update(ctx context.Context, rec *trial.Record) error {
	rec.UpdatedAt = time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE trials SET
			nct_id = $2, title = $3, phase = $4, sponsor = $5, condition = $6,
			status = $7, location = $8, start_date = $9, end_date = $10,
			min_age = $11, max_age = $12, gender = $13, eligibility_criteria = $14,
			updated_at = $15
		WHERE trial_id = $1`,
		rec.ID, rec.NCTID, rec.Title, rec.Phase, rec.Sponsor, rec.Condition,
		rec.Status, rec.Location, rec.StartDate, rec.EndDate,
		rec.MinAge, rec.MaxAge, rec.Gender, rec.EligibilityCriteria,
		rec.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "updating trial")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodeTrialNotFound, "trial "+rec.ID.String()+" not found")
	}
	return nil
}

// UpsertByTitle keys on the title because registry sync re-imports the same
// studies on every run and the stored titles already carry the NCT ID suffix.
func (r *TrialRepository) UpsertByTitle(ctx context.Context, rec *trial.Record) (*trial.Record, error) {
	var existingID common.ID
	err := r.pool.QueryRow(ctx,
		`SELECT trial_id FROM trials WHERE title = $1 ORDER BY created_at DESC LIMIT 1`,
		rec.Title,
	).Scan(&existingID)

	switch {
	case err == nil:
		rec.ID = existingID
		if err := r.Update(ctx, rec); err != nil {
			return nil, err
		}
		r.logger.Debug("updated existing trial", logging.String("trial_id", rec.ID.String()))
		return rec, nil
	case errors.Is(err, pgx.ErrNoRows):
		if err := r.Create(ctx, rec); err != nil {
			return nil, err
		}
		r.logger.Debug("inserted new trial", logging.String("trial_id", rec.ID.String()))
		return rec, nil
	default:
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "looking up trial by title")
	}
}

func (r *TrialRepository) UpdateEligibility(ctx context.Context, id common.ID, eligible, future []trial.PatientMatch) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE trials SET
			eligible_patients = $2,
			future_eligible_patients = $3,
			updated_at = now()
		WHERE trial_id = $1`,
		id, mustJSON(eligible), mustJSON(future),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "updating trial eligibility")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodeTrialNotFound, "trial "+id.String()+" not found")
	}
	return nil
}

func (r *TrialRepository) Delete(ctx context.Context, id common.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trials WHERE trial_id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "deleting trial")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.ErrCodeTrialNotFound, "trial "+id.String()+" not found")
	}
	return nil
}

func scanTrial(row pgx.Row) (*trial.Record, error) {
	var (
		rec      trial.Record
		eligible []byte
		future   []byte
	)
	err := row.Scan(
		&rec.ID, &rec.NCTID, &rec.Title, &rec.Phase, &rec.Sponsor, &rec.Condition,
		&rec.Status, &rec.Location, &rec.StartDate, &rec.EndDate,
		&rec.MinAge, &rec.MaxAge, &rec.Gender, &rec.EligibilityCriteria,
		&eligible, &future,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	fromJSON(eligible, &rec.EligiblePatients)
	fromJSON(future, &rec.FutureEligiblePatients)
	return &rec, nil
}
