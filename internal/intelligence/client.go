// Package intelligence adapts language-model oracles for the two jobs the
// platform delegates to them: extracting a structured patient profile from a
// conversation transcript, and predicting a patient's likely disease
// progressions.  Oracle output is always treated as untrusted input and
// validated before it reaches the domain.
package intelligence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

// ChatClient is the minimal completion surface the adapters need.  Tests and
// alternative providers plug in here.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Message is one chat turn in the oracle wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// HTTPChatClient talks to an OpenAI-compatible chat completion endpoint.
type HTTPChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	temp       float64
	maxRetries int
	httpClient *http.Client
	logger     logging.Logger
}

// NewHTTPChatClient builds a client from oracle configuration.
func NewHTTPChatClient(cfg config.OracleConfig, logger logging.Logger) *HTTPChatClient {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HTTPChatClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		temp:       cfg.Temperature,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("oracle"),
	}
}

// Complete sends one system+user exchange and returns the first choice's
// text.  Transport failures and 5xx responses retry with a short backoff.
func (c *HTTPChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temp,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeSerialization, "encoding oracle request")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", apperrors.Wrap(ctx.Err(), apperrors.ErrCodeTimeout, "oracle request cancelled")
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		text, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Warn("retrying oracle request", logging.Int("attempt", attempt+1), logging.Err(err))
	}
	return "", lastErr
}

func (c *HTTPChatClient) doOnce(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeOracleUnavailable, "building oracle request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, apperrors.Wrap(err, apperrors.ErrCodeOracleUnavailable, "calling oracle")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, apperrors.Wrap(err, apperrors.ErrCodeOracleUnavailable, "reading oracle response")
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, apperrors.New(apperrors.ErrCodeOracleUnavailable,
			fmt.Sprintf("oracle returned status %d", resp.StatusCode))
	}

	var decoded completionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ErrCodeOracleInvalidOutput, "decoding oracle response")
	}
	if len(decoded.Choices) == 0 {
		return "", false, apperrors.New(apperrors.ErrCodeOracleInvalidOutput, "oracle returned no choices")
	}
	return decoded.Choices[0].Message.Content, false, nil
}
