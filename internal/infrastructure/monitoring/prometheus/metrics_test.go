package prometheus_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prom "github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
)

func TestObserveHTTP(t *testing.T) {
	t.Parallel()

	m := prom.New()
	m.ObserveHTTP("GET", "/api/v1/trials", 200, 30*time.Millisecond)
	m.ObserveHTTP("GET", "/api/v1/trials", 200, 10*time.Millisecond)
	m.ObserveHTTP("POST", "/api/v1/match/all", 500, time.Second)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/trials", "200")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/api/v1/match/all", "500")))
}

func TestMatchCounters(t *testing.T) {
	t.Parallel()

	m := prom.New()
	m.MatchRuns.WithLabelValues("patient_to_trials", "ok").Inc()
	m.MatchRuns.WithLabelValues("patient_to_trials", "ok").Inc()
	m.MatchScores.Observe(90)
	m.SyncedTrials.Add(12)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.MatchRuns.WithLabelValues("patient_to_trials", "ok")))
	assert.Equal(t, float64(12), testutil.ToFloat64(m.SyncedTrials))
}

func TestHandlerServesMetrics(t *testing.T) {
	t.Parallel()

	m := prom.New()
	m.IntakeTotal.WithLabelValues("high").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "trialsync_intake_profiles_total")
}
