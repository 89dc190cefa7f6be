package intelligence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trialsync/trialsync/internal/domain/patient"
	"github.com/trialsync/trialsync/internal/intelligence"
)

func progressionProfile() *patient.Profile {
	age := 54
	return &patient.Profile{
		Age:                 &age,
		Gender:              "female",
		DiagnosedConditions: []string{"Type 2 Diabetes"},
		CurrentMedications:  []string{"Metformin"},
		ConditionSummary:    "Managing type 2 diabetes",
	}
}

func TestPredictConditions(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: `["Diabetic Retinopathy", "Cardiovascular Disease", "Chronic Kidney Disease"]`}
	p := intelligence.NewProgressionPredictor(chat, nil)

	got := p.PredictConditions(context.Background(), progressionProfile())
	assert.Equal(t, []string{"Diabetic Retinopathy", "Cardiovascular Disease", "Chronic Kidney Disease"}, got)

	assert.Contains(t, chat.user, "Age: 54")
	assert.Contains(t, chat.user, "Current Diagnosed Conditions: Type 2 Diabetes")
}

func TestPredictConditionsToleratesCodeFences(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: "```json\n[\"Diabetic Neuropathy\"]\n```"}
	p := intelligence.NewProgressionPredictor(chat, nil)

	got := p.PredictConditions(context.Background(), progressionProfile())
	assert.Equal(t, []string{"Diabetic Neuropathy"}, got)
}

func TestPredictConditionsMalformedOutput(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: "I predict the patient may develop complications."}
	p := intelligence.NewProgressionPredictor(chat, nil)

	assert.Nil(t, p.PredictConditions(context.Background(), progressionProfile()))
}

func TestPredictConditionsOracleFailure(t *testing.T) {
	t.Parallel()

	p := intelligence.NewProgressionPredictor(&fakeChat{err: errors.New("oracle down")}, nil)
	assert.Nil(t, p.PredictConditions(context.Background(), progressionProfile()))
}

func TestPredictConditionsSparseProfilePlaceholders(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{response: `[]`}
	p := intelligence.NewProgressionPredictor(chat, nil)

	got := p.PredictConditions(context.Background(), &patient.Profile{})
	assert.Empty(t, got)
	assert.Contains(t, chat.user, "Age: unknown")
	assert.Contains(t, chat.user, "None listed")
	assert.Contains(t, chat.user, "None provided")
}
