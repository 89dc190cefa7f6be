// Package matching provides the application-level service that runs the
// eligibility engine over stored patients and trials and persists the
// resulting summaries.  It sits between the HTTP/CLI handlers and the pure
// domain scorer.
package matching

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	domainmatching "github.com/trialsync/trialsync/internal/domain/matching"
	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/internal/infrastructure/database/redis"
	"github.com/trialsync/trialsync/internal/infrastructure/messaging/kafka"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/infrastructure/registry"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// candidatePageSize is the page size used when draining a repository.
const candidatePageSize = 500

// matchCacheTTL bounds how long a persisted match summary is served from
// cache before callers fall back to the database.
const matchCacheTTL = 15 * time.Minute

// Service runs batch eligibility matching and persists the outcomes.
type Service interface {
	// MatchPatient scores one patient against every stored trial and
	// persists the accepted matches onto the patient row.
	MatchPatient(ctx context.Context, patientID common.ID, input MatchInput) (*PatientOutcome, error)

	// MatchTrial is the mirror image: one trial against every stored patient.
	MatchTrial(ctx context.Context, trialID common.ID, input MatchInput) (*TrialOutcome, error)

	// MatchAll refreshes the match summaries of every patient and every
	// trial.  Per-subject persistence failures are skipped and logged.
	MatchAll(ctx context.Context, input MatchInput) (*BatchOutcome, error)

	// MatchFuture asks the progression oracle for conditions the patient may
	// develop, imports recruiting trials for them from the registry, and
	// persists the forward-looking match list.
	MatchFuture(ctx context.Context, patientID common.ID) (*FutureOutcome, error)
}

// MatchInput carries the optional per-request knobs of a match run.
type MatchInput struct {
	// MinScore overrides the configured cutoff when non-nil.
	MinScore *int
}

// PatientOutcome is the result of matching one patient.
type PatientOutcome struct {
	PatientID string               `json:"patient_id"`
	Evaluated int                  `json:"trials_evaluated"`
	MinScore  int                  `json:"min_score"`
	Current   []patient.TrialMatch `json:"current_eligible_trials"`
	Future    []patient.TrialMatch `json:"future_eligible_trials"`
}

// TrialOutcome is the result of matching one trial.
type TrialOutcome struct {
	TrialID   string               `json:"trial_id"`
	Evaluated int                  `json:"patients_evaluated"`
	MinScore  int                  `json:"min_score"`
	Eligible  []trial.PatientMatch `json:"eligible_patients"`
	Future    []trial.PatientMatch `json:"future_eligible_patients"`
}

// BatchOutcome summarizes a MatchAll run.
type BatchOutcome struct {
	PatientsMatched int `json:"patients_matched"`
	TrialsMatched   int `json:"trials_matched"`
	Failures        int `json:"failures"`
	MinScore        int `json:"min_score"`
}

// FutureOutcome is the result of a progression match.
type FutureOutcome struct {
	PatientID           string               `json:"patient_id"`
	PredictedConditions []string             `json:"predicted_conditions"`
	TrialsImported      int                  `json:"trials_imported"`
	Future              []patient.TrialMatch `json:"future_eligible_trials"`
}

// ConditionPredictor is the progression oracle seen by this service.
type ConditionPredictor interface {
	PredictConditions(ctx context.Context, profile *patient.Profile) []string
}

// RegistrySource is the slice of the registry client MatchFuture uses to
// import candidate trials for predicted conditions.
type RegistrySource interface {
	FindTrialIDs(ctx context.Context, f registry.IDFilter) ([]string, error)
	Get(ctx context.Context, nctID string) (*registry.Study, error)
}

// EventPublisher is the slice of the kafka producer this service publishes
// through.
type EventPublisher interface {
	PublishMatch(ctx context.Context, eventType, subjectID string, payload common.Metadata) error
}

// Deps collects the service's collaborators.  Predictor, Registry, Events,
// Cache, and Metrics may be nil; the service degrades to matching against
// stored data only.
type Deps struct {
	Patients  patient.Repository
	Trials    trial.Repository
	Predictor ConditionPredictor
	Registry  RegistrySource
	Events    EventPublisher
	Cache     redis.Cache
	Metrics   *prometheus.Metrics
	Logger    logging.Logger
}

type serviceImpl struct {
	patients  patient.Repository
	trials    trial.Repository
	predictor ConditionPredictor
	registry  RegistrySource
	events    EventPublisher
	cache     redis.Cache
	metrics   *prometheus.Metrics
	logger    logging.Logger

	scorer      *domainmatching.Scorer
	minScore    int
	concurrency int
}

// NewService builds the matching service.  minScore and concurrency come
// from MatchingConfig; out-of-range values fall back to engine defaults.
func NewService(deps Deps, minScore, concurrency int) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if minScore < 0 || minScore > 100 {
		minScore = domainmatching.DefaultMinScore
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &serviceImpl{
		patients:    deps.Patients,
		trials:      deps.Trials,
		predictor:   deps.Predictor,
		registry:    deps.Registry,
		events:      deps.Events,
		cache:       deps.Cache,
		metrics:     deps.Metrics,
		logger:      deps.Logger.Named("matching"),
		scorer:      domainmatching.NewScorer(),
		minScore:    minScore,
		concurrency: concurrency,
	}
}

func (s *serviceImpl) matcher(input MatchInput) (*domainmatching.Matcher, int, error) {
	min := s.minScore
	if input.MinScore != nil {
		min = *input.MinScore
	}
	if min < 0 || min > 100 {
		return nil, 0, apperrors.Newf(apperrors.ErrCodeMinScoreInvalid,
			"min score must be in [0, 100], got %d", min)
	}
	return domainmatching.NewMatcher(s.scorer,
		domainmatching.WithMinScore(min),
		domainmatching.WithConcurrency(s.concurrency)), min, nil
}

func (s *serviceImpl) MatchPatient(ctx context.Context, patientID common.ID, input MatchInput) (*PatientOutcome, error) {
	m, min, err := s.matcher(input)
	if err != nil {
		return nil, err
	}

	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	trials, err := s.loadAllTrials(ctx)
	if err != nil {
		return nil, err
	}

	lists := m.MatchPatientToTrials(p, trials)
	s.observeScores(lists.Current, lists.Future)

	if err := s.patients.UpdateEligibility(ctx, patientID, lists.Current, lists.Future); err != nil {
		s.countRun("patient", "error")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMatchPersistFailed, "persisting patient match summary")
	}
	s.countRun("patient", "ok")

	outcome := &PatientOutcome{
		PatientID: patientID.String(),
		Evaluated: len(trials),
		MinScore:  min,
		Current:   lists.Current,
		Future:    lists.Future,
	}
	s.cachePut(ctx, "match:patient:"+patientID.String(), outcome)
	s.publish(ctx, kafka.EventPatientMatched, patientID.String(), common.Metadata{
		"trials_evaluated": len(trials),
		"current_count":    len(lists.Current),
		"future_count":     len(lists.Future),
		"min_score":        min,
	})

	s.logger.Info("patient matched",
		logging.String("patient_id", patientID.String()),
		logging.Int("trials_evaluated", len(trials)),
		logging.Int("current", len(lists.Current)),
		logging.Int("future", len(lists.Future)))
	return outcome, nil
}

func (s *serviceImpl) MatchTrial(ctx context.Context, trialID common.ID, input MatchInput) (*TrialOutcome, error) {
	m, min, err := s.matcher(input)
	if err != nil {
		return nil, err
	}

	t, err := s.trials.GetByID(ctx, trialID)
	if err != nil {
		return nil, err
	}
	patients, err := s.loadAllPatients(ctx)
	if err != nil {
		return nil, err
	}

	lists := m.MatchTrialToPatients(t, patients)
	s.observePatientScores(lists.Eligible, lists.Future)

	if err := s.trials.UpdateEligibility(ctx, trialID, lists.Eligible, lists.Future); err != nil {
		s.countRun("trial", "error")
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMatchPersistFailed, "persisting trial match summary")
	}
	s.countRun("trial", "ok")

	outcome := &TrialOutcome{
		TrialID:   trialID.String(),
		Evaluated: len(patients),
		MinScore:  min,
		Eligible:  lists.Eligible,
		Future:    lists.Future,
	}
	s.cachePut(ctx, "match:trial:"+trialID.String(), outcome)
	s.publish(ctx, kafka.EventTrialMatched, trialID.String(), common.Metadata{
		"patients_evaluated": len(patients),
		"eligible_count":     len(lists.Eligible),
		"future_count":       len(lists.Future),
		"min_score":          min,
	})

	s.logger.Info("trial matched",
		logging.String("trial_id", trialID.String()),
		logging.Int("patients_evaluated", len(patients)),
		logging.Int("eligible", len(lists.Eligible)),
		logging.Int("future", len(lists.Future)))
	return outcome, nil
}

// MatchAll loads both entity sets once and refreshes every summary.  The
// per-subject fan-out is bounded by the configured concurrency; a failed
// persistence is counted and logged, never fatal.
func (s *serviceImpl) MatchAll(ctx context.Context, input MatchInput) (*BatchOutcome, error) {
	m, min, err := s.matcher(input)
	if err != nil {
		return nil, err
	}

	patients, err := s.loadAllPatients(ctx)
	if err != nil {
		return nil, err
	}
	trials, err := s.loadAllTrials(ctx)
	if err != nil {
		return nil, err
	}

	outcome := &BatchOutcome{MinScore: min}
	failures := make([]bool, len(patients)+len(trials))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, p := range patients {
		i, p := i, p
		g.Go(func() error {
			lists := m.MatchPatientToTrials(p, trials)
			if err := s.patients.UpdateEligibility(ctx, p.ID, lists.Current, lists.Future); err != nil {
				s.logger.Warn("skipping patient after persistence failure",
					logging.String("patient_id", p.ID.String()), logging.Err(err))
				failures[i] = true
			}
			return nil
		})
	}
	for i, t := range trials {
		i, t := i, t
		g.Go(func() error {
			lists := m.MatchTrialToPatients(t, patients)
			if err := s.trials.UpdateEligibility(ctx, t.ID, lists.Eligible, lists.Future); err != nil {
				s.logger.Warn("skipping trial after persistence failure",
					logging.String("trial_id", t.ID.String()), logging.Err(err))
				failures[len(patients)+i] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	outcome.Failures = countTrue(failures)
	outcome.PatientsMatched = len(patients) - countTrue(failures[:len(patients)])
	outcome.TrialsMatched = len(trials) - countTrue(failures[len(patients):])

	s.countRun("all", "ok")
	s.publish(ctx, kafka.EventPatientMatched, "all", common.Metadata{
		"patients_matched": outcome.PatientsMatched,
		"trials_matched":   outcome.TrialsMatched,
		"failures":         outcome.Failures,
	})

	s.logger.Info("batch match completed",
		logging.Int("patients", outcome.PatientsMatched),
		logging.Int("trials", outcome.TrialsMatched),
		logging.Int("failures", outcome.Failures))
	return outcome, nil
}

// MatchFuture augments the patient's conditions with the progression
// oracle's predictions, imports recruiting trials for them, and persists the
// trials the augmented profile is eligible for (excluding those already on
// the current list).
func (s *serviceImpl) MatchFuture(ctx context.Context, patientID common.ID) (*FutureOutcome, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	var predicted []string
	if s.predictor != nil {
		predicted = s.predictor.PredictConditions(ctx, p)
	}
	outcome := &FutureOutcome{
		PatientID:           patientID.String(),
		PredictedConditions: predicted,
	}
	if len(predicted) == 0 {
		s.logger.Info("no progression predictions", logging.String("patient_id", patientID.String()))
		if err := s.patients.UpdatePredictions(ctx, patientID, nil, nil); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeMatchPersistFailed, "persisting empty prediction")
		}
		return outcome, nil
	}

	outcome.TrialsImported = s.importTrials(ctx, p, predicted)

	trials, err := s.loadAllTrials(ctx)
	if err != nil {
		return nil, err
	}

	augmented := *p
	augmented.DiagnosedConditions = append(append([]string{}, p.DiagnosedConditions...), predicted...)

	m, _, err := s.matcher(MatchInput{})
	if err != nil {
		return nil, err
	}
	lists := m.MatchPatientToTrials(&augmented, trials)

	// Trials the patient already qualifies for today are not "future".
	current := make(map[string]struct{}, len(p.CurrentEligibleTrials))
	for _, tm := range p.CurrentEligibleTrials {
		current[tm.TrialID] = struct{}{}
	}
	future := make([]patient.TrialMatch, 0, len(lists.Current))
	for _, tm := range append(lists.Current, lists.Future...) {
		if _, dup := current[tm.TrialID]; dup {
			continue
		}
		future = append(future, tm)
	}
	outcome.Future = future

	if err := s.patients.UpdatePredictions(ctx, patientID, predicted, future); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMatchPersistFailed, "persisting progression match")
	}

	s.publish(ctx, kafka.EventFuturePredicted, patientID.String(), common.Metadata{
		"predicted_conditions": predicted,
		"future_count":         len(future),
		"trials_imported":      outcome.TrialsImported,
	})

	s.logger.Info("progression match completed",
		logging.String("patient_id", patientID.String()),
		logging.Int("predicted", len(predicted)),
		logging.Int("imported", outcome.TrialsImported),
		logging.Int("future", len(future)))
	return outcome, nil
}

// importTrials pulls recruiting trials for the predicted conditions into the
// local store.  Registry trouble degrades to matching against stored trials.
func (s *serviceImpl) importTrials(ctx context.Context, p *patient.Profile, conditions []string) int {
	if s.registry == nil {
		return 0
	}

	ids, err := s.registry.FindTrialIDs(ctx, registry.IDFilter{
		Conditions: conditions,
		Age:        p.Age,
		Gender:     p.Gender,
	})
	if err != nil {
		s.logger.Warn("trial id lookup failed", logging.Err(err))
		return 0
	}

	imported := 0
	for _, id := range ids {
		if _, err := s.trials.GetByNCTID(ctx, id); err == nil {
			continue
		} else if !apperrors.IsNotFound(err) {
			s.logger.Warn("trial lookup failed", logging.String("nct_id", id), logging.Err(err))
			continue
		}

		study, err := s.registry.Get(ctx, id)
		if err != nil {
			s.logger.Warn("study fetch failed", logging.String("nct_id", id), logging.Err(err))
			continue
		}
		rec := registry.Normalize(study)
		if rec.NCTID != "" && !strings.Contains(rec.Title, rec.NCTID) {
			rec.Title = rec.Title + " (" + rec.NCTID + ")"
		}
		if _, err := s.trials.UpsertByTitle(ctx, rec); err != nil {
			s.logger.Warn("trial import failed", logging.String("nct_id", id), logging.Err(err))
			continue
		}
		imported++
	}
	return imported
}

func (s *serviceImpl) loadAllTrials(ctx context.Context) ([]*trial.Record, error) {
	var all []*trial.Record
	for page := 1; ; page++ {
		batch, err := s.trials.List(ctx, common.Pagination{Page: page, PageSize: candidatePageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < candidatePageSize {
			return all, nil
		}
	}
}

func (s *serviceImpl) loadAllPatients(ctx context.Context) ([]*patient.Profile, error) {
	var all []*patient.Profile
	for page := 1; ; page++ {
		batch, err := s.patients.List(ctx, common.Pagination{Page: page, PageSize: candidatePageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < candidatePageSize {
			return all, nil
		}
	}
}

func (s *serviceImpl) observeScores(lists ...[]patient.TrialMatch) {
	if s.metrics == nil {
		return
	}
	for _, list := range lists {
		for _, tm := range list {
			s.metrics.MatchScores.Observe(float64(tm.Score))
		}
	}
}

func (s *serviceImpl) observePatientScores(lists ...[]trial.PatientMatch) {
	if s.metrics == nil {
		return
	}
	for _, list := range lists {
		for _, pm := range list {
			s.metrics.MatchScores.Observe(float64(pm.Score))
		}
	}
}

func (s *serviceImpl) countRun(direction, outcome string) {
	if s.metrics != nil {
		s.metrics.MatchRuns.WithLabelValues(direction, outcome).Inc()
	}
}

func (s *serviceImpl) cachePut(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, matchCacheTTL); err != nil {
		s.logger.Debug("match summary cache write failed", logging.Err(err))
	}
}

func (s *serviceImpl) publish(ctx context.Context, eventType, subjectID string, payload common.Metadata) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMatch(ctx, eventType, subjectID, payload); err != nil {
		s.logger.Warn("event publish failed", logging.String("type", eventType), logging.Err(err))
	}
}

func countTrue(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
