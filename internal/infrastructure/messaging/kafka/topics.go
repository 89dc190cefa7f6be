// Package kafka publishes and consumes the platform's domain events.
package kafka

// Event types carried on the bus.
const (
	EventMatchRequested  = "match.requested"
	EventPatientMatched  = "patient.matched"
	EventTrialMatched    = "trial.matched"
	EventPatientIntake   = "patient.intake"
	EventTrialSynced     = "trial.synced"
	EventFuturePredicted = "patient.future_predicted"
)

// Topics resolves event types to prefixed topic names.
type Topics struct {
	prefix string
}

// NewTopics builds a resolver for the given topic prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = "trialsync"
	}
	return Topics{prefix: prefix}
}

// Matches is the topic carrying match outcome events.
func (t Topics) Matches() string { return t.prefix + ".matches" }

// Intake is the topic carrying patient intake events.
func (t Topics) Intake() string { return t.prefix + ".intake" }

// Sync is the topic carrying registry sync events.
func (t Topics) Sync() string { return t.prefix + ".sync" }
