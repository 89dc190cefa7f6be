package intelligence_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/intelligence"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

func newChatClient(t *testing.T, handler http.HandlerFunc) *intelligence.HTTPChatClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return intelligence.NewHTTPChatClient(config.OracleConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		Model:       "test-model",
		Timeout:     5 * time.Second,
		MaxRetries:  2,
		Temperature: 0.2,
	}, nil)
}

func completionBody(content string) string {
	return `{"choices": [{"message": {"role": "assistant", "content": ` + mustQuote(content) + `}}]}`
}

func mustQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	client := newChatClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionBody(`{"first_name": "Maria"}`)))
	})

	text, err := client.Complete(context.Background(), "you extract records", "the transcript")
	require.NoError(t, err)
	assert.Equal(t, `{"first_name": "Maria"}`, text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "the transcript", gotReq.Messages[1].Content)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionBody("recovered")))
	})

	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.Complete(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeOracleUnavailable, apperrors.GetCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	client := newChatClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Complete(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeOracleInvalidOutput, apperrors.GetCode(err))
}
