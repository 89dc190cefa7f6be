package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// MatchClient drives the matching endpoints.
type MatchClient struct {
	client *Client
}

type matchRequest struct {
	MinScore *int `json:"min_score,omitempty"`
}

// Patient matches one patient against every stored trial.  A nil minScore
// uses the server's configured threshold.
func (m *MatchClient) Patient(ctx context.Context, patientID string, minScore *int) (*PatientMatchResult, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patientID is required")
	}
	var out PatientMatchResult
	path := fmt.Sprintf("%s/match/patients/%s", apiPrefix, url.PathEscape(patientID))
	if err := m.client.do(ctx, http.MethodPost, path, matchRequest{MinScore: minScore}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trial matches one trial against every stored patient.
func (m *MatchClient) Trial(ctx context.Context, trialID string, minScore *int) (*TrialMatchResult, error) {
	if trialID == "" {
		return nil, fmt.Errorf("trialID is required")
	}
	var out TrialMatchResult
	path := fmt.Sprintf("%s/match/trials/%s", apiPrefix, url.PathEscape(trialID))
	if err := m.client.do(ctx, http.MethodPost, path, matchRequest{MinScore: minScore}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// All runs a full bidirectional matching pass over every patient and trial.
func (m *MatchClient) All(ctx context.Context, minScore *int) (*BatchMatchResult, error) {
	var out BatchMatchResult
	path := apiPrefix + "/match/all"
	if err := m.client.do(ctx, http.MethodPost, path, matchRequest{MinScore: minScore}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Future runs condition-progression prediction and future-eligibility
// matching for one patient.
func (m *MatchClient) Future(ctx context.Context, patientID string) (*FutureMatchResult, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patientID is required")
	}
	var out FutureMatchResult
	path := fmt.Sprintf("%s/match/patients/%s/future", apiPrefix, url.PathEscape(patientID))
	if err := m.client.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
