package matching

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
)

// DefaultMinScore is the cutoff below which a pair is not worth surfacing.
const DefaultMinScore = 50

// TrialLists is the outcome of matching one patient against a trial set.
type TrialLists struct {
	Current []patient.TrialMatch `json:"current_eligible_trials"`
	Future  []patient.TrialMatch `json:"future_eligible_trials"`
}

// PatientLists is the outcome of matching one trial against a patient set.
type PatientLists struct {
	Eligible []trial.PatientMatch `json:"eligible_patients"`
	Future   []trial.PatientMatch `json:"future_eligible_patients"`
}

// Matcher runs a Scorer over candidate sets.  With a concurrency above one
// it fans scoring out across a bounded worker group; results land in a
// per-index slot so ordering stays deterministic either way.
type Matcher struct {
	scorer      *Scorer
	minScore    int
	concurrency int
}

// MatcherOption customizes a Matcher.
type MatcherOption func(*Matcher)

// WithMinScore overrides the score cutoff.
func WithMinScore(min int) MatcherOption {
	return func(m *Matcher) { m.minScore = min }
}

// WithConcurrency bounds the scoring fan-out. Values below two keep the
// batch sequential.
func WithConcurrency(n int) MatcherOption {
	return func(m *Matcher) { m.concurrency = n }
}

// NewMatcher builds a Matcher around the given Scorer.
func NewMatcher(scorer *Scorer, opts ...MatcherOption) *Matcher {
	m := &Matcher{scorer: scorer, minScore: DefaultMinScore, concurrency: 1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MatchPatientToTrials scores the patient against every candidate, keeps
// pairs at or above the cutoff, and splits them into currently eligible and
// future (disqualified but close) lists, each sorted by descending score.
// Ties keep candidate order.
func (m *Matcher) MatchPatientToTrials(p *patient.Profile, trials []*trial.Record) TrialLists {
	results := m.scoreAll(p, trials)

	lists := TrialLists{}
	for _, r := range results {
		if r.Score < m.minScore {
			continue
		}
		tm := patient.TrialMatch{
			TrialID:   r.TrialID,
			Title:     r.TrialTitle,
			Score:     r.Score,
			MatchDate: r.MatchedAt,
		}
		if r.IsEligible {
			lists.Current = append(lists.Current, tm)
		} else {
			tm.Reasons = r.Reasons
			lists.Future = append(lists.Future, tm)
		}
	}

	sort.SliceStable(lists.Current, func(i, j int) bool { return lists.Current[i].Score > lists.Current[j].Score })
	sort.SliceStable(lists.Future, func(i, j int) bool { return lists.Future[i].Score > lists.Future[j].Score })
	return lists
}

// MatchTrialToPatients is the mirror image of MatchPatientToTrials: same
// cutoff, same split, same ordering, from the trial's point of view.
func (m *Matcher) MatchTrialToPatients(t *trial.Record, patients []*patient.Profile) PatientLists {
	results := make([]Result, len(patients))
	m.run(len(patients), func(i int) {
		results[i] = m.scorer.Score(patients[i], t)
	})

	lists := PatientLists{}
	for i, r := range results {
		if r.Score < m.minScore {
			continue
		}
		pm := trial.PatientMatch{
			PatientID: patients[i].ID.String(),
			Name:      patients[i].DisplayName(),
			Score:     r.Score,
			MatchDate: r.MatchedAt,
		}
		if r.IsEligible {
			lists.Eligible = append(lists.Eligible, pm)
		} else {
			pm.Reasons = r.Reasons
			lists.Future = append(lists.Future, pm)
		}
	}

	sort.SliceStable(lists.Eligible, func(i, j int) bool { return lists.Eligible[i].Score > lists.Eligible[j].Score })
	sort.SliceStable(lists.Future, func(i, j int) bool { return lists.Future[i].Score > lists.Future[j].Score })
	return lists
}

func (m *Matcher) scoreAll(p *patient.Profile, trials []*trial.Record) []Result {
	results := make([]Result, len(trials))
	m.run(len(trials), func(i int) {
		results[i] = m.scorer.Score(p, trials[i])
	})
	return results
}

// run executes fn for every index, bounded by the configured concurrency.
// Scoring cannot fail, so the group is used purely for its limit and wait.
func (m *Matcher) run(n int, fn func(i int)) {
	if m.concurrency < 2 || n < 2 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}
