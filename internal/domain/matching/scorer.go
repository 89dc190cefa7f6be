// Package matching implements the eligibility scoring engine: a deterministic
// rule pipeline that grades one patient against one trial, condition
// similarity heuristics, and batch helpers that rank a candidate set and
// split it into current and future eligibility.
package matching

import (
	"time"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
)

// Result is the full outcome of scoring one patient against one trial.
type Result struct {
	TrialID    string    `json:"trial_id"`
	TrialTitle string    `json:"trial_title"`
	Score      int       `json:"match_score"`
	IsEligible bool      `json:"is_eligible"`
	Reasons    []string  `json:"reasons"`
	MatchedAt  time.Time `json:"match_date"`
}

// Scorer grades patient/trial pairs.  It is stateless apart from its clock
// and safe for concurrent use.
type Scorer struct {
	now func() time.Time
}

// ScorerOption customizes a Scorer.
type ScorerOption func(*Scorer)

// WithClock replaces the timestamp source.  Tests freeze it to make repeated
// runs byte-identical.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// NewScorer builds a Scorer with the real clock unless overridden.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score runs every eligibility dimension against the pair and returns the
// penalized score, clamped to [0, 100], with the reasons in dimension order.
// Eligibility is the conjunction of the disqualifying dimensions; the
// condition and location dimensions only lower the score.
func (s *Scorer) Score(p *patient.Profile, t *trial.Record) Result {
	score := 100
	eligible := true
	var reasons []string

	for _, check := range dimensionChecks {
		v := check(p, t)
		if !v.triggered() {
			continue
		}
		score -= v.penalty
		reasons = append(reasons, v.reason)
		if v.disqualifies {
			eligible = false
		}
	}

	if score < 0 {
		score = 0
	}

	return Result{
		TrialID:    t.MatchID(),
		TrialTitle: t.Title,
		Score:      score,
		IsEligible: eligible,
		Reasons:    reasons,
		MatchedAt:  s.now().UTC(),
	}
}
