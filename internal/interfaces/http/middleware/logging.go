// Package middleware holds the HTTP middleware chain: request logging,
// CORS, and rate limiting.
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/prometheus"
)

// slowThreshold is the latency above which a request is logged as a warning.
const slowThreshold = 3 * time.Second

// statusWriter captures the status code and byte count of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// RequestLogging logs one line per served request and feeds the HTTP
// metrics.  Health and metrics probes are skipped to keep the log quiet.
func RequestLogging(logger logging.Logger, metrics *prometheus.Metrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.Named("http")

	skip := map[string]struct{}{
		"/healthz": {},
		"/readyz":  {},
		"/metrics": {},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)
			elapsed := time.Since(start)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			if metrics != nil {
				metrics.ObserveHTTP(r.Method, r.URL.Path, sw.status, elapsed)
			}

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", sw.status),
				logging.Duration("elapsed", elapsed),
				logging.Int64("bytes", sw.bytes),
				logging.String("request_id", chimw.GetReqID(r.Context())),
			}

			switch {
			case sw.status >= http.StatusInternalServerError:
				logger.Error("request failed", fields...)
			case sw.status >= http.StatusBadRequest:
				logger.Warn("request rejected", fields...)
			case elapsed > slowThreshold:
				logger.Warn("slow request", fields...)
			default:
				logger.Info("request served", fields...)
			}
		})
	}
}
