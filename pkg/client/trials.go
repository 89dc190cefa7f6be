package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// TrialsClient drives the trial endpoints.
type TrialsClient struct {
	client *Client
}

// TrialPage is one page of stored trial records.
type TrialPage struct {
	Trials   []Trial `json:"trials"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// SearchResult is a live registry search preview.
type SearchResult struct {
	Trials []Trial `json:"trials"`
	Count  int     `json:"count"`
}

// List fetches a page of stored trial records.
func (t *TrialsClient) List(ctx context.Context, page, pageSize int) (*TrialPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if pageSize > 0 {
		q.Set("page_size", fmt.Sprintf("%d", pageSize))
	}
	path := apiPrefix + "/trials"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out TrialPage
	if err := t.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one trial by internal ID or by NCT identifier.
func (t *TrialsClient) Get(ctx context.Context, trialID string) (*Trial, error) {
	if trialID == "" {
		return nil, fmt.Errorf("trialID is required")
	}
	var out Trial
	path := fmt.Sprintf("%s/trials/%s", apiPrefix, url.PathEscape(trialID))
	if err := t.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sync imports registry studies matching the request into storage.
func (t *TrialsClient) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if req.Condition == "" {
		return nil, fmt.Errorf("condition is required")
	}
	var out SyncResult
	if err := t.client.do(ctx, http.MethodPost, apiPrefix+"/trials/sync", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search previews registry studies without persisting them.
func (t *TrialsClient) Search(ctx context.Context, req SyncRequest) (*SearchResult, error) {
	if req.Condition == "" {
		return nil, fmt.Errorf("condition is required")
	}
	q := url.Values{}
	q.Set("condition", req.Condition)
	for _, s := range req.Statuses {
		q.Add("status", s)
	}
	for _, p := range req.Phases {
		q.Add("phase", p)
	}
	if req.MaxStudies > 0 {
		q.Set("max", fmt.Sprintf("%d", req.MaxStudies))
	}

	var out SearchResult
	path := apiPrefix + "/trials/search?" + q.Encode()
	if err := t.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
