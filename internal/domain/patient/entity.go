// Package patient implements the patient bounded context: the extracted
// profile aggregate, extraction-confidence grading, and the repository
// contract.
package patient

import (
	"strings"
	"time"

	"github.com/trialsync/trialsync/pkg/types/common"
)

// Confidence grades how complete and internally consistent a profile
// extraction was.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Profile is the patient aggregate.  Every demographic field is optional: a
// profile extracted from a sparse conversation may carry nothing but a phone
// number.  Age is nil when unknown, never zero.
type Profile struct {
	ID          common.ID `json:"patient_id"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	Age         *int      `json:"age,omitempty"`
	Gender      string    `json:"gender,omitempty"`

	ContactEmail string `json:"contact_email,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Location     string `json:"location,omitempty"`

	ConditionSummary    string   `json:"condition_summary,omitempty"`
	DiagnosedConditions []string `json:"diagnosed_conditions,omitempty"`
	CurrentMedications  []string `json:"current_medications,omitempty"`

	ExtractionConfidence Confidence `json:"extraction_confidence,omitempty"`

	// Persisted match summaries, refreshed by the matching service.
	CurrentEligibleTrials []TrialMatch `json:"current_eligible_trials,omitempty"`
	FutureEligibleTrials  []TrialMatch `json:"future_eligible_trials,omitempty"`

	// Conditions the progression oracle predicts this patient may develop.
	PredictedConditions []string `json:"predicted_conditions,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// TrialMatch is the lightweight reference stored on a patient for each trial
// the matching engine accepted.  Reasons are carried only for
// future-eligible entries.
type TrialMatch struct {
	TrialID   string    `json:"trial_id"`
	Title     string    `json:"title"`
	Score     int       `json:"score"`
	MatchDate time.Time `json:"match_date"`
	Reasons   []string  `json:"reasons,omitempty"`
}

// DisplayName joins the name parts, tolerating either being absent.
func (p *Profile) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ConditionPool returns the lower-cased condition strings to match against:
// the free-text summary, when present, followed by each diagnosed condition.
func (p *Profile) ConditionPool() []string {
	pool := make([]string, 0, len(p.DiagnosedConditions)+1)
	if p.ConditionSummary != "" {
		pool = append(pool, strings.ToLower(p.ConditionSummary))
	}
	for _, c := range p.DiagnosedConditions {
		pool = append(pool, strings.ToLower(c))
	}
	return pool
}
