package client

import "time"

// TrialMatch is one accepted trial reference on a patient.
type TrialMatch struct {
	TrialID   string    `json:"trial_id"`
	Title     string    `json:"title"`
	Score     int       `json:"score"`
	MatchDate time.Time `json:"match_date"`
	Reasons   []string  `json:"reasons,omitempty"`
}

// PatientMatch is one accepted patient reference on a trial.
type PatientMatch struct {
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	MatchDate time.Time `json:"match_date"`
	Reasons   []string  `json:"reasons,omitempty"`
}

// Patient mirrors the patient profile resource.
type Patient struct {
	ID                   string       `json:"patient_id"`
	FirstName            string       `json:"first_name,omitempty"`
	LastName             string       `json:"last_name,omitempty"`
	Phone                string       `json:"phone,omitempty"`
	Email                string       `json:"email,omitempty"`
	Age                  int          `json:"age,omitempty"`
	Gender               string       `json:"gender,omitempty"`
	Location             string       `json:"location,omitempty"`
	DiagnosedConditions  []string     `json:"diagnosed_conditions,omitempty"`
	ConditionSummary     string       `json:"condition_summary,omitempty"`
	Medications          []string     `json:"medications,omitempty"`
	ExtractionConfidence string       `json:"extraction_confidence,omitempty"`
	PredictedConditions  []string     `json:"predicted_conditions,omitempty"`
	CurrentEligible      []TrialMatch `json:"current_eligible_trials,omitempty"`
	FutureEligible       []TrialMatch `json:"future_eligible_trials,omitempty"`
	CreatedAt            time.Time    `json:"created_at,omitempty"`
	UpdatedAt            time.Time    `json:"updated_at,omitempty"`
}

// Trial mirrors the trial record resource.
type Trial struct {
	ID                  string         `json:"trial_id"`
	NCTID               string         `json:"nct_id,omitempty"`
	Title               string         `json:"title"`
	Phase               string         `json:"phase,omitempty"`
	Sponsor             string         `json:"sponsor,omitempty"`
	Condition           string         `json:"condition,omitempty"`
	Location            string         `json:"location,omitempty"`
	Status              string         `json:"status,omitempty"`
	StartDate           string         `json:"start_date,omitempty"`
	EndDate             string         `json:"end_date,omitempty"`
	MinAge              *int           `json:"min_age,omitempty"`
	MaxAge              *int           `json:"max_age,omitempty"`
	Gender              string         `json:"gender,omitempty"`
	EligibilityCriteria string         `json:"eligibility_criteria,omitempty"`
	EligiblePatients    []PatientMatch `json:"eligible_patients,omitempty"`
	FuturePatients      []PatientMatch `json:"future_eligible_patients,omitempty"`
	CreatedAt           time.Time      `json:"created_at,omitempty"`
	UpdatedAt           time.Time      `json:"updated_at,omitempty"`
}

// PatientMatchResult is the outcome of matching one patient against the
// trial pool.
type PatientMatchResult struct {
	PatientID string       `json:"patient_id"`
	Evaluated int          `json:"trials_evaluated"`
	MinScore  int          `json:"min_score"`
	Current   []TrialMatch `json:"current_eligible_trials"`
	Future    []TrialMatch `json:"future_eligible_trials"`
}

// TrialMatchResult is the outcome of matching one trial against the
// patient pool.
type TrialMatchResult struct {
	TrialID   string         `json:"trial_id"`
	Evaluated int            `json:"patients_evaluated"`
	MinScore  int            `json:"min_score"`
	Eligible  []PatientMatch `json:"eligible_patients"`
	Future    []PatientMatch `json:"future_eligible_patients"`
}

// BatchMatchResult summarizes a full bidirectional matching run.
type BatchMatchResult struct {
	PatientsMatched int `json:"patients_matched"`
	TrialsMatched   int `json:"trials_matched"`
	Failures        int `json:"failures"`
	MinScore        int `json:"min_score"`
}

// FutureMatchResult is the outcome of progression-based future matching.
type FutureMatchResult struct {
	PatientID           string       `json:"patient_id"`
	PredictedConditions []string     `json:"predicted_conditions"`
	TrialsImported      int          `json:"trials_imported"`
	Future              []TrialMatch `json:"future_eligible_trials"`
}

// SyncRequest selects which registry studies to import.
type SyncRequest struct {
	Condition  string   `json:"condition"`
	Statuses   []string `json:"statuses,omitempty"`
	Phases     []string `json:"phases,omitempty"`
	MaxStudies int      `json:"max_studies,omitempty"`
}

// SyncResult summarizes a registry import run.
type SyncResult struct {
	Synced   int      `json:"synced"`
	Failed   int      `json:"failed"`
	Failures []string `json:"failures,omitempty"`
}

// TranscriptTurn is one utterance in an intake conversation.
type TranscriptTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TranscriptSession is a complete intake conversation to process.
type TranscriptSession struct {
	SessionID string                 `json:"session_id"`
	StartedAt time.Time              `json:"started_at,omitempty"`
	Turns     []TranscriptTurn       `json:"turns"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// IntakeResult is the outcome of processing a transcript.
type IntakeResult struct {
	PatientID   string `json:"patient_id"`
	DisplayName string `json:"display_name,omitempty"`
	Confidence  string `json:"confidence"`
	Matched     bool   `json:"matched"`
	Current     int    `json:"current_eligible_count"`
	Future      int    `json:"future_eligible_count"`
}
