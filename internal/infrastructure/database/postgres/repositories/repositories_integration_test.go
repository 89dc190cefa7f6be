//go:build integration

package repositories_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/internal/infrastructure/database/postgres/repositories"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithInitScripts(
			"../migrations/000001_create_patients.up.sql",
			"../migrations/000002_create_trials.up.sql",
		),
		postgres.WithDatabase("trialsync_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPatientRepositoryRoundTrip(t *testing.T) {
	pool := setupPool(t)
	repo := repositories.NewPatientRepository(pool, nil)
	ctx := context.Background()

	age := 54
	p := &patient.Profile{
		FirstName:            "Maria",
		LastName:             "Santos",
		Age:                  &age,
		Gender:               "female",
		ContactEmail:         "maria.santos@example.com",
		PhoneNumber:          "+14155550101",
		Location:             "Boston, MA",
		ConditionSummary:     "managing type 2 diabetes",
		DiagnosedConditions:  []string{"Type 2 Diabetes"},
		CurrentMedications:   []string{"Metformin"},
		ExtractionConfidence: patient.ConfidenceHigh,
	}
	require.NoError(t, repo.Create(ctx, p))
	require.False(t, p.ID.IsZero())

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", got.FirstName)
	require.NotNil(t, got.Age)
	assert.Equal(t, 54, *got.Age)
	assert.Equal(t, []string{"Type 2 Diabetes"}, got.DiagnosedConditions)
	assert.Equal(t, patient.ConfidenceHigh, got.ExtractionConfidence)

	byPhone, err := repo.GetByPhone(ctx, "+14155550101")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byPhone.ID)

	byEmail, err := repo.GetByEmail(ctx, "maria.santos@example.com")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byEmail.ID)
}

func TestPatientRepositoryNotFound(t *testing.T) {
	pool := setupPool(t)
	repo := repositories.NewPatientRepository(pool, nil)

	_, err := repo.GetByID(context.Background(), common.NewID())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPatientRepositoryUpsertByPhone(t *testing.T) {
	pool := setupPool(t)
	repo := repositories.NewPatientRepository(pool, nil)
	ctx := context.Background()

	first := &patient.Profile{FirstName: "Ana", PhoneNumber: "+14155550102"}
	_, err := repo.UpsertByPhone(ctx, first)
	require.NoError(t, err)

	second := &patient.Profile{FirstName: "Ana", LastName: "Costa", PhoneNumber: "+14155550102"}
	upserted, err := repo.UpsertByPhone(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, upserted.ID)

	all, err := repo.List(ctx, common.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "Costa", all[0].LastName)
}

func TestPatientRepositoryUpdateEligibility(t *testing.T) {
	pool := setupPool(t)
	repo := repositories.NewPatientRepository(pool, nil)
	ctx := context.Background()

	p := &patient.Profile{FirstName: "Jo"}
	require.NoError(t, repo.Create(ctx, p))

	now := time.Now().UTC().Truncate(time.Second)
	current := []patient.TrialMatch{{TrialID: "NCT01", Title: "Open Study", Score: 90, MatchDate: now}}
	future := []patient.TrialMatch{{TrialID: "NCT02", Title: "Closed Study", Score: 50, MatchDate: now, Reasons: []string{"Trial status is COMPLETED"}}}
	require.NoError(t, repo.UpdateEligibility(ctx, p.ID, current, future))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.CurrentEligibleTrials, 1)
	assert.Equal(t, 90, got.CurrentEligibleTrials[0].Score)
	require.Len(t, got.FutureEligibleTrials, 1)
	assert.Equal(t, []string{"Trial status is COMPLETED"}, got.FutureEligibleTrials[0].Reasons)
}

func TestTrialRepositoryRoundTrip(t *testing.T) {
	pool := setupPool(t)
	repo := repositories.NewTrialRepository(pool, nil)
	ctx := context.Background()

	minAge, maxAge := 18, 75
	rec := &trial.Record{
		NCTID:     "NCT04000001",
		Title:     "Semaglutide Study (NCT04000001)",
		Phase:     "2",
		Condition: "Type 2 Diabetes",
		Status:    trial.StatusRecruiting,
		Location:  "Boston, Massachusetts, United States",
		MinAge:    &minAge,
		MaxAge:    &maxAge,
		Gender:    trial.GenderAll,
	}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByNCTID(ctx, "NCT04000001")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, trial.StatusRecruiting, got.Status)
	require.NotNil(t, got.MinAge)
	assert.Equal(t, 18, *got.MinAge)
}

func TestTrialRepositoryUpsertByTitle(t *testing.T) {
	pool := setupPool(t)
	repo := repositories.NewTrialRepository(pool, nil)
	ctx := context.Background()

	rec := &trial.Record{Title: "Hypertension Study (NCT05)", Status: trial.StatusRecruiting}
	_, err := repo.UpsertByTitle(ctx, rec)
	require.NoError(t, err)

	again := &trial.Record{Title: "Hypertension Study (NCT05)", Status: trial.StatusCompleted}
	upserted, err := repo.UpsertByTitle(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, upserted.ID)

	all, err := repo.List(ctx, common.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, trial.StatusCompleted, all[0].Status)
}
