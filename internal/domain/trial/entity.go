// Package trial implements the clinical-trial bounded context: the trial
// aggregate, recruitment-status and gender enumerations with their boundary
// normalization, and the repository contract.  Business rules that concern
// trials live here; persistence and registry access are handled by separate
// adapter layers.
package trial

import (
	"strings"
	"time"

	"github.com/trialsync/trialsync/pkg/types/common"
)

// Gender is the closed set of sex restrictions a trial can declare.
// Free text from the registry is normalized once at the boundary via
// ParseGender; internal code only ever compares Gender values.
type Gender string

const (
	GenderAll    Gender = "ALL"
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// ParseGender normalizes free-text sex restrictions into the closed Gender
// set.  Unknown or empty input maps to GenderAll, the registry default.
func ParseGender(s string) Gender {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(GenderMale), "M", "MAN", "MEN":
		return GenderMale
	case string(GenderFemale), "F", "WOMAN", "WOMEN":
		return GenderFemale
	default:
		return GenderAll
	}
}

// String returns the wire form of the Gender.
func (g Gender) String() string { return string(g) }

// Status is a trial's recruitment state as reported by the registry,
// upper-cased at the boundary.  The raw (normalized) text is preserved so
// that explanations can print exactly what the registry sent; enrollment
// decisions go through OpenForEnrollment.
type Status string

// Recruitment states the registry is known to report.
const (
	StatusRecruiting         Status = "RECRUITING"
	StatusNotYetRecruiting   Status = "NOT_YET_RECRUITING"
	StatusAvailable          Status = "AVAILABLE"
	StatusActiveNotRecruiting Status = "ACTIVE_NOT_RECRUITING"
	StatusEnrollingByInvite  Status = "ENROLLING_BY_INVITATION"
	StatusCompleted          Status = "COMPLETED"
	StatusSuspended          Status = "SUSPENDED"
	StatusTerminated         Status = "TERMINATED"
	StatusWithdrawn          Status = "WITHDRAWN"
	StatusUnknown            Status = "UNKNOWN"
)

// ParseStatus normalizes a free-text recruitment state.  Unrecognized values
// are preserved verbatim (upper-cased) rather than collapsed, so downstream
// explanations stay faithful to the source record.
func ParseStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// String returns the wire form of the Status.
func (s Status) String() string { return string(s) }

// OpenForEnrollment reports whether a trial in this state accepts new
// participants.  Every other state, including an absent one, is treated as
// closed.
func (s Status) OpenForEnrollment() bool {
	switch s {
	case StatusRecruiting, StatusNotYetRecruiting, StatusAvailable:
		return true
	default:
		return false
	}
}

// Record is the trial aggregate.  MinAge and MaxAge are in whole years; a nil
// bound means unbounded on that side.  Condition is the registry's
// comma-delimited free text; EligibilityCriteria is free text that is never
// parsed algorithmically.
type Record struct {
	ID      common.ID `json:"trial_id"`
	NCTID   string    `json:"nct_id,omitempty"`
	Title   string    `json:"title"`
	Phase   string    `json:"phase,omitempty"`
	Sponsor string    `json:"sponsor,omitempty"`

	Condition string `json:"condition,omitempty"`
	Location  string `json:"location,omitempty"`
	Status    Status `json:"status,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	MinAge              *int   `json:"min_age,omitempty"`
	MaxAge              *int   `json:"max_age,omitempty"`
	Gender              Gender `json:"gender,omitempty"`
	EligibilityCriteria string `json:"eligibility_criteria,omitempty"`

	// Persisted match summaries, refreshed by the matching service.
	EligiblePatients       []PatientMatch `json:"eligible_patients,omitempty"`
	FutureEligiblePatients []PatientMatch `json:"future_eligible_patients,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// PatientMatch is the lightweight reference stored on a trial for each
// patient the matching engine accepted.  Reasons are carried only for
// future-eligible entries.
type PatientMatch struct {
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	MatchDate time.Time `json:"match_date"`
	Reasons   []string  `json:"reasons,omitempty"`
}

// MatchID returns the identifier the scorer should report for this trial:
// the internal record ID when present, otherwise the public NCT ID.
func (r *Record) MatchID() string {
	if !r.ID.IsZero() {
		return r.ID.String()
	}
	return r.NCTID
}

// ConditionPool returns the comma-split, trimmed, lower-cased condition
// tokens.  An empty Condition yields an empty pool.
func (r *Record) ConditionPool() []string {
	if r.Condition == "" {
		return nil
	}
	parts := strings.Split(r.Condition, ",")
	pool := make([]string, 0, len(parts))
	for _, p := range parts {
		pool = append(pool, strings.ToLower(strings.TrimSpace(p)))
	}
	return pool
}
