package client

import (
	"context"
	"fmt"
	"net/http"
)

// IntakeClient drives the transcript-intake endpoint.
type IntakeClient struct {
	client *Client
}

// ProcessTranscript submits an intake conversation for profile extraction
// and storage.
func (i *IntakeClient) ProcessTranscript(ctx context.Context, session TranscriptSession) (*IntakeResult, error) {
	if session.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if len(session.Turns) == 0 {
		return nil, fmt.Errorf("at least one transcript turn is required")
	}
	var out IntakeResult
	if err := i.client.do(ctx, http.MethodPost, apiPrefix+"/intake/transcripts", session, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
