// Package intake turns call transcripts into stored patient profiles.  Each
// transcript arrives as an explicit session object; extraction runs through
// the profile oracle and the result is upserted by phone number, the stable
// key across calls.
package intake

import (
	"context"
	"time"

	appmatching "github.com/trialsync/trialsync/internal/application/matching"
	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
	"github.com/trialsync/trialsync/internal/intelligence"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
	"github.com/trialsync/trialsync/pkg/types/common"
)

// TranscriptSession is one recorded conversation.  Metadata carries
// transport details (caller id, channel) that never enter extraction.
type TranscriptSession struct {
	SessionID string                        `json:"session_id"`
	StartedAt time.Time                     `json:"started_at,omitempty"`
	Turns     []intelligence.TranscriptTurn `json:"turns"`
	Metadata  common.Metadata               `json:"metadata,omitempty"`
}

// Outcome reports what intake did with a session.
type Outcome struct {
	PatientID   string             `json:"patient_id"`
	DisplayName string             `json:"display_name,omitempty"`
	Confidence  patient.Confidence `json:"confidence"`
	Matched     bool               `json:"matched"`
	Current     int                `json:"current_eligible_count"`
	Future      int                `json:"future_eligible_count"`
}

// Service processes transcript sessions.
type Service interface {
	// ProcessTranscript extracts a profile from the session, stores it, and
	// kicks off eligibility matching for the new or updated patient.
	ProcessTranscript(ctx context.Context, session *TranscriptSession) (*Outcome, error)
}

// ProfileExtractor is the oracle adapter seen by this service.
type ProfileExtractor interface {
	Extract(ctx context.Context, turns []intelligence.TranscriptTurn) *patient.Profile
}

// PatientMatcher runs eligibility matching after a profile lands.
type PatientMatcher interface {
	MatchPatient(ctx context.Context, patientID common.ID, input appmatching.MatchInput) (*appmatching.PatientOutcome, error)
}

// EventPublisher is the slice of the kafka producer this service publishes
// through.
type EventPublisher interface {
	PublishIntake(ctx context.Context, subjectID string, payload common.Metadata) error
}

// Deps collects the service's collaborators.  Matcher, Events, and Metrics
// may be nil; extraction and storage still run.
type Deps struct {
	Extractor ProfileExtractor
	Patients  patient.Repository
	Matcher   PatientMatcher
	Events    EventPublisher
	Metrics   *prometheus.Metrics
	Logger    logging.Logger
}

type serviceImpl struct {
	extractor ProfileExtractor
	patients  patient.Repository
	matcher   PatientMatcher
	events    EventPublisher
	metrics   *prometheus.Metrics
	logger    logging.Logger
}

// NewService builds the intake service.
func NewService(deps Deps) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		extractor: deps.Extractor,
		patients:  deps.Patients,
		matcher:   deps.Matcher,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    deps.Logger.Named("intake"),
	}
}

func (s *serviceImpl) ProcessTranscript(ctx context.Context, session *TranscriptSession) (*Outcome, error) {
	if session == nil || len(session.Turns) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "transcript session has no turns")
	}
	if s.extractor == nil {
		return nil, apperrors.New(apperrors.ErrCodeServiceUnavailable, "profile extraction is not configured")
	}

	profile := s.extractor.Extract(ctx, session.Turns)

	// Low-confidence extractions are stored anyway; the confidence flag
	// travels with the profile so reviewers can find them.
	if profile.ExtractionConfidence == patient.ConfidenceLow {
		s.logger.Warn("low confidence extraction",
			logging.String("session_id", session.SessionID))
	}

	stored, err := s.patients.UpsertByPhone(ctx, profile)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "storing extracted profile")
	}

	if s.metrics != nil {
		s.metrics.IntakeTotal.WithLabelValues(string(stored.ExtractionConfidence)).Inc()
	}

	outcome := &Outcome{
		PatientID:   stored.ID.String(),
		DisplayName: stored.DisplayName(),
		Confidence:  stored.ExtractionConfidence,
	}

	if s.matcher != nil {
		match, err := s.matcher.MatchPatient(ctx, stored.ID, appmatching.MatchInput{})
		if err != nil {
			s.logger.Warn("post-intake match failed",
				logging.String("patient_id", stored.ID.String()), logging.Err(err))
		} else {
			outcome.Matched = true
			outcome.Current = len(match.Current)
			outcome.Future = len(match.Future)
		}
	}

	if s.events != nil {
		payload := common.Metadata{
			"session_id": session.SessionID,
			"confidence": string(stored.ExtractionConfidence),
			"matched":    outcome.Matched,
		}
		if err := s.events.PublishIntake(ctx, stored.ID.String(), payload); err != nil {
			s.logger.Warn("intake event publish failed", logging.Err(err))
		}
	}

	s.logger.Info("transcript processed",
		logging.String("session_id", session.SessionID),
		logging.String("patient_id", stored.ID.String()),
		logging.String("confidence", string(stored.ExtractionConfidence)),
		logging.Bool("matched", outcome.Matched))
	return outcome, nil
}
