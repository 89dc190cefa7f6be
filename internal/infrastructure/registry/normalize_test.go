package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsync/trialsync/internal/infrastructure/registry"
	"github.com/trialsync/trialsync/internal/domain/trial"
)

func TestParseAge(t *testing.T) {
	t.Parallel()

	intPtr := func(v int) *int { return &v }

	tests := []struct {
		in   string
		want *int
	}{
		{"18 Years", intPtr(18)},
		{"65 Years", intPtr(65)},
		{"1 Year", intPtr(1)},
		{"6 Months", intPtr(0)},
		{"30 Months", intPtr(2)},
		{"14 Days", intPtr(0)},
		{"2 Weeks", intPtr(0)},
		{"N/A", nil},
		{"", nil},
		{"Years", nil},
		{"abc Years", nil},
		{"80", nil},
	}
	for _, tt := range tests {
		got := registry.ParseAge(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
		} else {
			require.NotNil(t, got, "input %q", tt.in)
			assert.Equal(t, *tt.want, *got, "input %q", tt.in)
		}
	}
}

func sampleStudy() *registry.Study {
	return &registry.Study{
		ProtocolSection: registry.ProtocolSection{
			Identification: registry.IdentificationModule{
				NCTID:      "NCT04000001",
				BriefTitle: "Semaglutide in Early Type 2 Diabetes",
			},
			Status: registry.StatusModule{
				OverallStatus:  "RECRUITING",
				StartDate:      registry.DateStruct{Date: "2024-05"},
				CompletionDate: registry.DateStruct{Date: "2027-12"},
			},
			Conditions: registry.ConditionsModule{
				Conditions: []string{"Type 2 Diabetes", "Obesity"},
			},
			Design: registry.DesignModule{Phases: []string{"PHASE2"}},
			Eligibility: registry.EligibilityModule{
				MinimumAge:          "18 Years",
				MaximumAge:          "75 Years",
				Sex:                 "ALL",
				EligibilityCriteria: "Inclusion: HbA1c between 6.5 and 9.0",
			},
			ContactsLocations: registry.ContactsLocationsModule{
				Locations: []registry.Location{
					{City: "Boston", State: "Massachusetts", Country: "United States"},
					{City: "Chicago", State: "Illinois", Country: "United States"},
				},
			},
			Sponsor: registry.SponsorModule{
				LeadSponsor: registry.LeadSponsor{Name: "Novo Research Group"},
			},
		},
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	rec := registry.Normalize(sampleStudy())

	assert.Equal(t, "NCT04000001", rec.NCTID)
	assert.Equal(t, "Semaglutide in Early Type 2 Diabetes", rec.Title)
	assert.Equal(t, "2", rec.Phase)
	assert.Equal(t, "Type 2 Diabetes, Obesity", rec.Condition)
	assert.Equal(t, trial.StatusRecruiting, rec.Status)
	assert.Equal(t, "Boston, Massachusetts, United States", rec.Location)
	assert.Equal(t, "2024-05", rec.StartDate)
	assert.Equal(t, "2027-12", rec.EndDate)
	assert.Equal(t, "Novo Research Group", rec.Sponsor)
	require.NotNil(t, rec.MinAge)
	assert.Equal(t, 18, *rec.MinAge)
	require.NotNil(t, rec.MaxAge)
	assert.Equal(t, 75, *rec.MaxAge)
	assert.Equal(t, trial.GenderAll, rec.Gender)
}

func TestNormalizeSparseStudy(t *testing.T) {
	t.Parallel()

	rec := registry.Normalize(&registry.Study{})
	assert.Empty(t, rec.NCTID)
	assert.Empty(t, rec.Phase)
	assert.Empty(t, rec.Condition)
	assert.Empty(t, rec.Location)
	assert.Nil(t, rec.MinAge)
	assert.Nil(t, rec.MaxAge)
	assert.Equal(t, trial.GenderAll, rec.Gender)
}

func TestNormalizeLocationDropsEmptyParts(t *testing.T) {
	t.Parallel()

	s := sampleStudy()
	s.ProtocolSection.ContactsLocations.Locations = []registry.Location{
		{City: "Lisbon", Country: "Portugal"},
	}
	rec := registry.Normalize(s)
	assert.Equal(t, "Lisbon, Portugal", rec.Location)
}
