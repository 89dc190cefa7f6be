package registry

import (
	"strconv"
	"strings"

	"github.com/trialsync/trialsync/internal/domain/trial"
)

// ParseAge converts the registry's age strings ("18 Years", "6 Months",
// "N/A") into whole years.  Months floor-divide by twelve; days and weeks
// round to zero.  Absent or unparseable input yields nil.
func ParseAge(s string) *int {
	if s == "" || s == "N/A" {
		return nil
	}

	s = strings.ToUpper(strings.TrimSpace(s))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}

	switch {
	case strings.Contains(s, "YEAR"):
		years, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil
		}
		return &years
	case strings.Contains(s, "MONTH"):
		months, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil
		}
		years := months / 12
		return &years
	case strings.Contains(s, "DAY"), strings.Contains(s, "WEEK"):
		zero := 0
		return &zero
	}
	return nil
}

// Normalize flattens a registry study document into a trial record.  The
// first listed location becomes "city, state, country" with empty parts
// dropped; the first listed phase loses its "PHASE" prefix; sex and status
// pass through the domain's boundary normalizers.
func Normalize(s *Study) *trial.Record {
	p := s.ProtocolSection

	var location string
	if len(p.ContactsLocations.Locations) > 0 {
		first := p.ContactsLocations.Locations[0]
		var parts []string
		for _, part := range []string{first.City, first.State, first.Country} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		location = strings.Join(parts, ", ")
	}

	var phase string
	if len(p.Design.Phases) > 0 {
		phase = strings.TrimSpace(strings.ReplaceAll(p.Design.Phases[0], "PHASE", ""))
	}

	return &trial.Record{
		NCTID:               p.Identification.NCTID,
		Title:               p.Identification.BriefTitle,
		Phase:               phase,
		Condition:           strings.Join(p.Conditions.Conditions, ", "),
		Status:              trial.ParseStatus(p.Status.OverallStatus),
		Location:            location,
		StartDate:           p.Status.StartDate.Date,
		EndDate:             p.Status.CompletionDate.Date,
		Sponsor:             p.Sponsor.LeadSponsor.Name,
		MinAge:              ParseAge(p.Eligibility.MinimumAge),
		MaxAge:              ParseAge(p.Eligibility.MaximumAge),
		Gender:              trial.ParseGender(p.Eligibility.Sex),
		EligibilityCriteria: p.Eligibility.EligibilityCriteria,
	}
}
