package registry

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// searchFields is the field list requested on paged searches.
const searchFields = "NCTId,BriefTitle,Condition,Phase,OverallStatus," +
	"StartDate,CompletionDate,EnrollmentCount,LocationCity," +
	"LocationState,LocationCountry,MinimumAge,MaximumAge," +
	"Gender,EligibilityCriteria,LeadSponsorName"

// detailFields is the wider field list requested on single-study lookups.
const detailFields = "NCTId,BriefTitle,DetailedDescription,Condition,Phase," +
	"OverallStatus,StartDate,CompletionDate,EnrollmentCount," +
	"LocationCity,LocationState,LocationCountry,MinimumAge," +
	"MaximumAge,Gender,EligibilityCriteria,LeadSponsorName," +
	"HealthyVolunteers,StdAge"

// SearchQuery describes one paged search against the studies endpoint.
type SearchQuery struct {
	Condition string
	Statuses  []string
	Phases    []string
	PageSize  int
	PageToken string
}

// condQuery assembles the Essie expression for query.cond: the condition
// search term AND-ed with OR-groups for status and phase.
func (q SearchQuery) condQuery() string {
	var parts []string
	if q.Condition != "" {
		parts = append(parts, fmt.Sprintf("AREA[ConditionSearch]%s", q.Condition))
	}
	if group := orGroup("OverallStatus", q.Statuses); group != "" {
		parts = append(parts, group)
	}
	if group := orGroup("Phase", q.Phases); group != "" {
		parts = append(parts, group)
	}
	return strings.Join(parts, " AND ")
}

func orGroup(area string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	terms := make([]string, len(values))
	for i, v := range values {
		terms[i] = fmt.Sprintf("AREA[%s]%s", area, v)
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

// params renders the query as URL parameters.
func (q SearchQuery) params() url.Values {
	v := url.Values{}
	v.Set("format", "json")
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	v.Set("fields", searchFields)
	if cond := q.condQuery(); cond != "" {
		v.Set("query.cond", cond)
	}
	if q.PageToken != "" {
		v.Set("pageToken", q.PageToken)
	}
	return v
}

// IDFilter describes a by-condition lookup that returns only NCT IDs,
// optionally narrowed by the patient's age and sex.
type IDFilter struct {
	Conditions []string
	Age        *int
	Gender     string
}

// advancedFilter assembles the Essie expression for filter.advanced.  The
// sex clause is emitted only for an unambiguous report; the age clauses pin
// the trial's bounds around the patient (MinimumAge at most the patient's
// age, MaximumAge at least it).
func (f IDFilter) advancedFilter() string {
	var parts []string

	switch strings.ToLower(strings.TrimSpace(f.Gender)) {
	case "female", "f", "woman", "women":
		parts = append(parts, "AREA[Sex]Female")
	case "male", "m", "man", "men":
		parts = append(parts, "AREA[Sex]Male")
	}

	if f.Age != nil && *f.Age >= 0 {
		parts = append(parts, fmt.Sprintf("AREA[MinimumAge]RANGE[0 Years,%d Years]", *f.Age))
		parts = append(parts, fmt.Sprintf("AREA[MaximumAge]RANGE[%d Years,MAX]", *f.Age))
	}

	return strings.Join(parts, " AND ")
}

// params renders the filter as URL parameters.  Only recruiting trials are
// requested, and only the NCT ID field comes back.
func (f IDFilter) params() url.Values {
	v := url.Values{}
	v.Set("query.cond", strings.Join(f.Conditions, " OR "))
	v.Set("filter.overallStatus", "RECRUITING")
	v.Set("pageSize", "100")
	v.Set("format", "json")
	v.Set("fields", "NCTId")
	if adv := f.advancedFilter(); adv != "" {
		v.Set("filter.advanced", adv)
	}
	return v
}
