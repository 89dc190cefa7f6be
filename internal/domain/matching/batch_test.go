package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsync/trialsync/internal/domain/matching"
	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// batchPatient pairs with the batchTrials fixtures to produce a known score
// per trial.
func batchPatient() *patient.Profile {
	return &patient.Profile{
		ID:                  common.NewID(),
		FirstName:           "Maria",
		LastName:            "Santos",
		Age:                 intPtr(50),
		Gender:              "female",
		Location:            "Boston, MA",
		DiagnosedConditions: []string{"diabetes"},
	}
}

func batchTrial(nct, title string) *trial.Record {
	return &trial.Record{
		NCTID:     nct,
		Title:     title,
		Status:    trial.StatusRecruiting,
		Gender:    trial.GenderAll,
		Condition: "Diabetes",
		Location:  "Boston, Massachusetts, United States",
	}
}

func batchTrials() []*trial.Record {
	perfect := batchTrial("NCT00000100", "Perfect Fit") // 100, eligible

	farAway := batchTrial("NCT00000090", "Far Away") // 90, eligible
	farAway.Location = "Tokyo, Japan"

	wrongCondition := batchTrial("NCT00000080", "Wrong Condition") // 80, eligible
	wrongCondition.Condition = "Melanoma"

	wrongBoth := batchTrial("NCT00000070", "Wrong Condition Abroad") // 70, eligible
	wrongBoth.Condition = "Melanoma"
	wrongBoth.Location = "Tokyo, Japan"

	menOnly := batchTrial("NCT00000060", "Men Only") // 60, future
	menOnly.Gender = trial.GenderMale

	closed := batchTrial("NCT00000050", "Closed Study") // 50, future
	closed.Status = trial.StatusCompleted

	closedFarAway := batchTrial("NCT00000040", "Closed Study Abroad") // 40, dropped
	closedFarAway.Status = trial.StatusCompleted
	closedFarAway.Location = "Tokyo, Japan"

	return []*trial.Record{closed, wrongBoth, perfect, closedFarAway, menOnly, farAway, wrongCondition}
}

func scoresOf(ms []patient.TrialMatch) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = m.Score
	}
	return out
}

func TestMatchPatientToTrials(t *testing.T) {
	t.Parallel()

	m := matching.NewMatcher(frozenScorer())
	lists := m.MatchPatientToTrials(batchPatient(), batchTrials())

	assert.Equal(t, []int{100, 90, 80, 70}, scoresOf(lists.Current))
	assert.Equal(t, []int{60, 50}, scoresOf(lists.Future))

	// Eligible entries carry no reasons; future entries explain themselves.
	for _, tm := range lists.Current[:2] {
		assert.Empty(t, tm.Reasons)
	}
	require.Len(t, lists.Future, 2)
	assert.Equal(t, []string{"Gender mismatch: trial requires MALE"}, lists.Future[0].Reasons)
	assert.Equal(t, []string{"Trial status is COMPLETED"}, lists.Future[1].Reasons)

	// The 40-point pair fell below the cutoff entirely.
	for _, tm := range append(lists.Current, lists.Future...) {
		assert.NotEqual(t, "NCT00000040", tm.TrialID)
	}
}

func TestMatchPatientToTrialsAtCutoffIncluded(t *testing.T) {
	t.Parallel()

	closed := batchTrial("NCT00000050", "Closed Study")
	closed.Status = trial.StatusCompleted

	m := matching.NewMatcher(frozenScorer())
	lists := m.MatchPatientToTrials(batchPatient(), []*trial.Record{closed})
	require.Len(t, lists.Future, 1)
	assert.Equal(t, 50, lists.Future[0].Score)
}

func TestMatchPatientToTrialsCustomMinScore(t *testing.T) {
	t.Parallel()

	m := matching.NewMatcher(frozenScorer(), matching.WithMinScore(80))
	lists := m.MatchPatientToTrials(batchPatient(), batchTrials())

	assert.Equal(t, []int{100, 90, 80}, scoresOf(lists.Current))
	assert.Empty(t, lists.Future)
}

func TestMatchPatientToTrialsTiesKeepInputOrder(t *testing.T) {
	t.Parallel()

	first := batchTrial("NCT00000001", "First")
	second := batchTrial("NCT00000002", "Second")

	m := matching.NewMatcher(frozenScorer())
	lists := m.MatchPatientToTrials(batchPatient(), []*trial.Record{first, second})

	require.Len(t, lists.Current, 2)
	assert.Equal(t, "NCT00000001", lists.Current[0].TrialID)
	assert.Equal(t, "NCT00000002", lists.Current[1].TrialID)
}

func TestMatchPatientToTrialsParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	p := batchPatient()
	trials := batchTrials()

	seq := matching.NewMatcher(frozenScorer())
	par := matching.NewMatcher(frozenScorer(), matching.WithConcurrency(8))

	assert.Equal(t, seq.MatchPatientToTrials(p, trials), par.MatchPatientToTrials(p, trials))
}

func TestMatchPatientToTrialsEmptyCandidates(t *testing.T) {
	t.Parallel()

	m := matching.NewMatcher(frozenScorer())
	lists := m.MatchPatientToTrials(batchPatient(), nil)
	assert.Empty(t, lists.Current)
	assert.Empty(t, lists.Future)
}

func TestMatchTrialToPatients(t *testing.T) {
	t.Parallel()

	tr := batchTrial("NCT00000100", "Diabetes Study")

	fit := batchPatient()
	tooYoung := batchPatient()
	tooYoung.FirstName = "Ana"
	tooYoung.LastName = ""
	tooYoung.Age = intPtr(12)
	farAway := batchPatient()
	farAway.Location = "Lisbon, Portugal"

	tr.MinAge = intPtr(18)

	m := matching.NewMatcher(frozenScorer())
	lists := m.MatchTrialToPatients(tr, []*patient.Profile{tooYoung, fit, farAway})

	require.Len(t, lists.Eligible, 2)
	assert.Equal(t, 100, lists.Eligible[0].Score)
	assert.Equal(t, "Maria Santos", lists.Eligible[0].Name)
	assert.Equal(t, fit.ID.String(), lists.Eligible[0].PatientID)
	assert.Equal(t, 90, lists.Eligible[1].Score)

	require.Len(t, lists.Future, 1)
	assert.Equal(t, "Ana", lists.Future[0].Name)
	assert.Equal(t, 70, lists.Future[0].Score)
	assert.Equal(t, []string{"Age 12 is below minimum age 18"}, lists.Future[0].Reasons)
}
