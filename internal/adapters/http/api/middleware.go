package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/trophycase/pkg/metrics"
)

// errorKinds names the failure classes clients of the feed API hit.
var errorKinds = map[int]string{ //nolint:gochecknoglobals // static lookup
	http.StatusBadRequest:         "bad_request",
	http.StatusNotFound:           "not_found",
	http.StatusTooManyRequests:    "backpressure",
	http.StatusServiceUnavailable: "unavailable",
}

// instrument records request count, latency and failures for endpoint.
func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		status := strconv.Itoa(rec.status)
		elapsedMs := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, elapsedMs)

		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http_"+endpoint, errorKind(rec.status))
		}
	}
}

func errorKind(status int) string {
	if kind, ok := errorKinds[status]; ok {
		return kind
	}
	if status >= http.StatusInternalServerError {
		return "internal"
	}
	return "client_error"
}

// statusRecorder keeps the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
