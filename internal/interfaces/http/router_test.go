package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsync/trialsync/internal/application/intake"
	appmatching "github.com/trialsync/trialsync/internal/application/matching"
	appsync "github.com/trialsync/trialsync/internal/application/sync"
	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/interfaces/http/handlers"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

type stubMatchService struct {
	patientOutcome *appmatching.PatientOutcome
	trialOutcome   *appmatching.TrialOutcome
	batchOutcome   *appmatching.BatchOutcome
	futureOutcome  *appmatching.FutureOutcome
	err            error
	lastInput      appmatching.MatchInput
}

func (s *stubMatchService) MatchPatient(_ context.Context, _ common.ID, input appmatching.MatchInput) (*appmatching.PatientOutcome, error) {
	s.lastInput = input
	return s.patientOutcome, s.err
}

func (s *stubMatchService) MatchTrial(_ context.Context, _ common.ID, input appmatching.MatchInput) (*appmatching.TrialOutcome, error) {
	s.lastInput = input
	return s.trialOutcome, s.err
}

func (s *stubMatchService) MatchAll(_ context.Context, input appmatching.MatchInput) (*appmatching.BatchOutcome, error) {
	s.lastInput = input
	return s.batchOutcome, s.err
}

func (s *stubMatchService) MatchFuture(_ context.Context, _ common.ID) (*appmatching.FutureOutcome, error) {
	return s.futureOutcome, s.err
}

type stubSyncService struct {
	outcome *appsync.Outcome
	records []*trial.Record
	err     error
	lastReq appsync.Request
}

func (s *stubSyncService) SyncTrials(_ context.Context, req appsync.Request) (*appsync.Outcome, error) {
	s.lastReq = req
	return s.outcome, s.err
}

func (s *stubSyncService) SearchTrials(_ context.Context, req appsync.Request) ([]*trial.Record, error) {
	s.lastReq = req
	return s.records, s.err
}

func (s *stubSyncService) Run(context.Context, time.Duration, appsync.Request) {}

type stubIntakeService struct {
	outcome *intake.Outcome
	err     error
}

func (s *stubIntakeService) ProcessTranscript(_ context.Context, _ *intake.TranscriptSession) (*intake.Outcome, error) {
	return s.outcome, s.err
}

type stubPatientReader struct {
	patient.Repository
	profile *patient.Profile
}

func (s *stubPatientReader) GetByID(_ context.Context, _ common.ID) (*patient.Profile, error) {
	if s.profile == nil {
		return nil, apperrors.New(apperrors.ErrCodePatientNotFound, "patient not found")
	}
	return s.profile, nil
}

func (s *stubPatientReader) List(_ context.Context, _ common.Pagination) ([]*patient.Profile, error) {
	if s.profile == nil {
		return nil, nil
	}
	return []*patient.Profile{s.profile}, nil
}

type stubTrialReader struct {
	trial.Repository
	record    *trial.Record
	wantNCTID string
	gotNCTID  string
}

func (s *stubTrialReader) GetByID(_ context.Context, _ common.ID) (*trial.Record, error) {
	if s.record == nil {
		return nil, apperrors.New(apperrors.ErrCodeTrialNotFound, "trial not found")
	}
	return s.record, nil
}

func (s *stubTrialReader) GetByNCTID(_ context.Context, nctID string) (*trial.Record, error) {
	s.gotNCTID = nctID
	if s.record == nil {
		return nil, apperrors.New(apperrors.ErrCodeTrialNotFound, "trial not found")
	}
	return s.record, nil
}

func (s *stubTrialReader) List(_ context.Context, _ common.Pagination) ([]*trial.Record, error) {
	return nil, nil
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *common.ErrorDetail `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func testRouter(match *stubMatchService, syncSvc *stubSyncService, intakeSvc *stubIntakeService,
	patients *stubPatientReader, trials *stubTrialReader, checks ...handlers.Check) http.Handler {
	return NewRouter(RouterConfig{
		MatchHandler:   handlers.NewMatchHandler(match, nil),
		PatientHandler: handlers.NewPatientHandler(patients, nil),
		TrialHandler:   handlers.NewTrialHandler(trials, syncSvc, nil),
		IntakeHandler:  handlers.NewIntakeHandler(intakeSvc, nil),
		HealthHandler:  handlers.NewHealthHandler(checks...),
		Metrics:        prometheus.New(),
	})
}

func emptyStubs() (*stubMatchService, *stubSyncService, *stubIntakeService, *stubPatientReader, *stubTrialReader) {
	return &stubMatchService{}, &stubSyncService{}, &stubIntakeService{}, &stubPatientReader{}, &stubTrialReader{}
}

func TestMatchPatientRoute(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	match.patientOutcome = &appmatching.PatientOutcome{
		PatientID: "p-1",
		Evaluated: 3,
		MinScore:  60,
		Current:   []patient.TrialMatch{{TrialID: "t-1", Score: 100}},
	}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	body := bytes.NewBufferString(`{"min_score": 60}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/patients/p-1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var out appmatching.PatientOutcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "p-1", out.PatientID)
	assert.Equal(t, 60, out.MinScore)

	require.NotNil(t, match.lastInput.MinScore)
	assert.Equal(t, 60, *match.lastInput.MinScore)
}

func TestMatchPatientRouteEmptyBody(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	match.patientOutcome = &appmatching.PatientOutcome{PatientID: "p-1"}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/patients/p-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, match.lastInput.MinScore)
}

func TestMatchPatientRouteNotFound(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	match.err = apperrors.New(apperrors.ErrCodePatientNotFound, "patient not found")
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/patients/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "PAT_001", env.Error.Code)
}

func TestMatchAllRouteInternalErrorIsMasked(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	match.err = errors.New("pq: relation does not exist")
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/match/all", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "internal server error", env.Error.Message)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestGetPatientRoute(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	patients.profile = &patient.Profile{ID: "p-1", FirstName: "Maria", LastName: "Santos"}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/p-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var out patient.Profile
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	assert.Equal(t, "Maria", out.FirstName)
}

func TestGetTrialRouteByNCTID(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	trials.record = &trial.Record{ID: "t-1", NCTID: "NCT01234567", Title: "Diabetes Management Study"}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trials/NCT01234567", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NCT01234567", trials.gotNCTID)
}

func TestSyncRouteRequiresCondition(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/trials/sync", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "COMMON_002", env.Error.Code)
}

func TestSearchRouteRequiresCondition(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trials/search", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncRoute(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	syncSvc.outcome = &appsync.Outcome{Synced: 4}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	body := bytes.NewBufferString(`{"condition": "diabetes", "max_studies": 20}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/trials/sync", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "diabetes", syncSvc.lastReq.Condition)
	assert.Equal(t, 20, syncSvc.lastReq.MaxStudies)
}

func TestSearchRoutePassesFilters(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	syncSvc.records = []*trial.Record{{Title: "Diabetes Management Study"}}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/trials/search?condition=diabetes&status=RECRUITING&phase=2&max=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "diabetes", syncSvc.lastReq.Condition)
	assert.Equal(t, []string{"RECRUITING"}, syncSvc.lastReq.Statuses)
	assert.Equal(t, []string{"2"}, syncSvc.lastReq.Phases)
	assert.Equal(t, 5, syncSvc.lastReq.MaxStudies)
}

func TestIntakeRoute(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	intakeSvc.outcome = &intake.Outcome{PatientID: "p-9", Confidence: patient.ConfidenceHigh, Matched: true}
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	body := bytes.NewBufferString(`{"session_id": "call-042", "turns": [{"role": "caller", "content": "hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/intake/transcripts", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var out intake.Outcome
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	assert.Equal(t, "p-9", out.PatientID)
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	router := testRouter(match, syncSvc, intakeSvc, patients, trials,
		handlers.Check{Name: "postgres", Probe: func(context.Context) error { return nil }},
		handlers.Check{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }},
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	match, syncSvc, intakeSvc, patients, trials := emptyStubs()
	router := testRouter(match, syncSvc, intakeSvc, patients, trials)

	// Serve one API request first so the HTTP counters exist.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trialsync_http_requests_total")
}
