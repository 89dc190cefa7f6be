package matching

import (
	"fmt"
	"strings"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/domain/trial"
)

// Penalty weights per eligibility dimension.
const (
	PenaltyAge       = 30
	PenaltyGender    = 40
	PenaltyCondition = 20
	PenaltyLocation  = 10
	PenaltyStatus    = 50
)

// verdict is the outcome of one eligibility dimension for one pair.
type verdict struct {
	penalty      int
	disqualifies bool
	reason       string
}

func (v verdict) triggered() bool { return v.penalty > 0 }

// dimensionChecks are evaluated in a fixed order so that reason lists come
// out deterministic.  Every check runs for every pair; a disqualifying miss
// never stops the later dimensions from contributing their reasons.
var dimensionChecks = []func(*patient.Profile, *trial.Record) verdict{
	checkAge,
	checkGender,
	checkCondition,
	checkLocation,
	checkStatus,
}

// checkAge fires only when the patient's age is known.  The lower bound is
// tested first; a below-minimum miss suppresses the upper-bound test.
func checkAge(p *patient.Profile, t *trial.Record) verdict {
	if p.Age == nil {
		return verdict{}
	}
	age := *p.Age
	if t.MinAge != nil && age < *t.MinAge {
		return verdict{
			penalty:      PenaltyAge,
			disqualifies: true,
			reason:       fmt.Sprintf("Age %d is below minimum age %d", age, *t.MinAge),
		}
	}
	if t.MaxAge != nil && age > *t.MaxAge {
		return verdict{
			penalty:      PenaltyAge,
			disqualifies: true,
			reason:       fmt.Sprintf("Age %d exceeds maximum age %d", age, *t.MaxAge),
		}
	}
	return verdict{}
}

// checkGender fires when the trial restricts by sex, the patient reported a
// gender, and the upper-cased report differs from the restriction.
func checkGender(p *patient.Profile, t *trial.Record) verdict {
	if t.Gender == "" || t.Gender == trial.GenderAll || p.Gender == "" {
		return verdict{}
	}
	if strings.ToUpper(p.Gender) == string(t.Gender) {
		return verdict{}
	}
	return verdict{
		penalty:      PenaltyGender,
		disqualifies: true,
		reason:       fmt.Sprintf("Gender mismatch: trial requires %s", t.Gender),
	}
}

// checkCondition fires when the trial declares at least one target condition
// and nothing in the patient's pool relates to any of them.  A patient with
// no recorded conditions takes the penalty too.  Never disqualifying.
func checkCondition(p *patient.Profile, t *trial.Record) verdict {
	trialPool := t.ConditionPool()
	if len(trialPool) == 0 {
		return verdict{}
	}
	if PoolsOverlap(p.ConditionPool(), trialPool) {
		return verdict{}
	}
	return verdict{
		penalty: PenaltyCondition,
		reason:  "Condition does not match trial criteria",
	}
}

// checkLocation fires when both sides carry a location and no comma-separated
// part of the patient's is contained in the trial's.  Parts are compared
// lower-cased without trimming.  Never disqualifying.
func checkLocation(p *patient.Profile, t *trial.Record) verdict {
	if p.Location == "" || t.Location == "" {
		return verdict{}
	}
	patientLoc := strings.ToLower(p.Location)
	trialLoc := strings.ToLower(t.Location)
	for _, part := range strings.Split(patientLoc, ",") {
		if strings.Contains(trialLoc, part) {
			return verdict{}
		}
	}
	return verdict{
		penalty: PenaltyLocation,
		reason:  "Location may not be optimal",
	}
}

// checkStatus fires whenever the trial is not open for enrollment, an absent
// status included.
func checkStatus(_ *patient.Profile, t *trial.Record) verdict {
	status := trial.ParseStatus(string(t.Status))
	if status.OpenForEnrollment() {
		return verdict{}
	}
	return verdict{
		penalty:      PenaltyStatus,
		disqualifies: true,
		reason:       fmt.Sprintf("Trial status is %s", status),
	}
}
