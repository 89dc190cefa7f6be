package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// PatientsClient drives the patient endpoints.
type PatientsClient struct {
	client *Client
}

// PatientPage is one page of stored patient profiles.
type PatientPage struct {
	Patients []Patient `json:"patients"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}

// List fetches a page of patient profiles.  Zero values fall back to the
// server defaults.
func (p *PatientsClient) List(ctx context.Context, page, pageSize int) (*PatientPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprintf("%d", pageSize))
	}
	path := apiPrefix + "/patients"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out PatientPage
	if err := p.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one patient profile by ID.
func (p *PatientsClient) Get(ctx context.Context, patientID string) (*Patient, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patientID is required")
	}
	var out Patient
	path := fmt.Sprintf("%s/patients/%s", apiPrefix, url.PathEscape(patientID))
	if err := p.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
