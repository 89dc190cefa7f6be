// Package registry is the client for the ClinicalTrials.gov v2 API: Essie
// query construction, paged study search, single-study lookup, and
// normalization of the nested study document into the flat trial record the
// rest of the platform works with.
package registry

// SearchResponse is the paged envelope returned by the studies endpoint.
type SearchResponse struct {
	Studies       []Study `json:"studies"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	TotalCount    int     `json:"totalCount,omitempty"`
}

// Study is one registry document.  Only the modules the platform consumes
// are modelled; unknown fields are ignored on decode.
type Study struct {
	ProtocolSection ProtocolSection `json:"protocolSection"`
}

// ProtocolSection groups the registry's per-concern modules.
type ProtocolSection struct {
	Identification    IdentificationModule    `json:"identificationModule"`
	Status            StatusModule            `json:"statusModule"`
	Conditions        ConditionsModule        `json:"conditionsModule"`
	Design            DesignModule            `json:"designModule"`
	Eligibility       EligibilityModule       `json:"eligibilityModule"`
	ContactsLocations ContactsLocationsModule `json:"contactsLocationsModule"`
	Sponsor           SponsorModule           `json:"sponsorCollaboratorsModule"`
}

type IdentificationModule struct {
	NCTID      string `json:"nctId"`
	BriefTitle string `json:"briefTitle"`
}

type StatusModule struct {
	OverallStatus  string     `json:"overallStatus"`
	StartDate      DateStruct `json:"startDateStruct"`
	CompletionDate DateStruct `json:"completionDateStruct"`
}

// DateStruct carries the registry's partial dates ("2024" or "2024-05").
type DateStruct struct {
	Date string `json:"date"`
}

type ConditionsModule struct {
	Conditions []string `json:"conditions"`
}

type DesignModule struct {
	Phases []string `json:"phases"`
}

type EligibilityModule struct {
	MinimumAge          string `json:"minimumAge"`
	MaximumAge          string `json:"maximumAge"`
	Sex                 string `json:"sex"`
	EligibilityCriteria string `json:"eligibilityCriteria"`
	HealthyVolunteers   bool   `json:"healthyVolunteers"`
}

type ContactsLocationsModule struct {
	Locations []Location `json:"locations"`
}

type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type SponsorModule struct {
	LeadSponsor LeadSponsor `json:"leadSponsor"`
}

type LeadSponsor struct {
	Name string `json:"name"`
}
