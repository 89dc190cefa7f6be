package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command against args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func apiStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestMatchAllCommand(t *testing.T) {
	srv := apiStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/match/all", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"patients_matched": 3,
				"trials_matched":   7,
				"failures":         0,
				"min_score":        50,
			},
		})
	})

	out, err := execute(t, "match", "--all", "--server", srv.URL, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"patients_matched": 3`)
	assert.Contains(t, out, "matched 3 patients and 7 trials")
}

func TestMatchPatientCommandSendsMinScore(t *testing.T) {
	srv := apiStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/match/patients/p-1", r.URL.Path)

		var body struct {
			MinScore *int `json:"min_score"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotNil(t, body.MinScore)
		assert.Equal(t, 75, *body.MinScore)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"patient_id": "p-1", "min_score": 75},
		})
	})

	out, err := execute(t, "match", "--patient", "p-1", "--min-score", "75", "--server", srv.URL, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"patient_id": "p-1"`)
}

func TestMatchFutureCommand(t *testing.T) {
	srv := apiStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/match/patients/p-1/future", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"patient_id":           "p-1",
				"predicted_conditions": []string{"diabetic nephropathy"},
				"trials_imported":      2,
			},
		})
	})

	out, err := execute(t, "match", "--patient", "p-1", "--future", "--server", srv.URL, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "diabetic nephropathy")
}

func TestMatchCommandRequiresExactlyOneMode(t *testing.T) {
	_, err := execute(t, "match")
	assert.Error(t, err)

	_, err = execute(t, "match", "--patient", "p-1", "--all")
	assert.Error(t, err)
}

func TestMatchFutureRequiresPatient(t *testing.T) {
	_, err := execute(t, "match", "--all", "--future")
	assert.Error(t, err)
}
