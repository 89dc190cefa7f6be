package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trialsync/trialsync/internal/domain/matching"
)

func TestConditionsRelated(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		patient string
		trial   string
		want    bool
	}{
		{"identical", "diabetes", "diabetes", true},
		{"patient contains trial", "type 2 diabetes mellitus", "diabetes", true},
		{"trial contains patient", "diabetes", "type 2 diabetes mellitus", true},
		{"shared keyword", "diabetic neuropathy pain", "neuropathy disorder", true},
		{"unrelated", "asthma", "melanoma", false},
		{"stopword overlap ignored", "chronic kidney disease", "chronic heart disease", false},
		{"short tokens ignored", "flu a", "flu b", false},
		{"shared long token", "stage iv lung cancer", "lung carcinoma", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, matching.ConditionsRelated(tt.patient, tt.trial))
		})
	}
}

func TestConditionsRelatedEmptyTrialString(t *testing.T) {
	t.Parallel()

	// An empty token is a substring of everything, so a blank entry in the
	// trial's condition list matches any patient condition.
	assert.True(t, matching.ConditionsRelated("anything", ""))
}

func TestPoolsOverlap(t *testing.T) {
	t.Parallel()

	assert.True(t, matching.PoolsOverlap(
		[]string{"hypertension", "type 2 diabetes"},
		[]string{"melanoma", "diabetes"},
	))
	assert.False(t, matching.PoolsOverlap(
		[]string{"hypertension"},
		[]string{"melanoma", "asthma"},
	))
	assert.False(t, matching.PoolsOverlap(nil, []string{"melanoma"}))
	assert.False(t, matching.PoolsOverlap([]string{"melanoma"}, nil))
}
