package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	tokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_tokens_issued_total",
			Help: "Signed session tokens issued, by trigger.",
		},
		[]string{"trigger"},
	)

	tokenVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_token_verifications_total",
			Help: "Token verifications by mode and outcome.",
		},
		[]string{"mode", "result"},
	)

	tokensRevoked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_tokens_revoked_total",
			Help: "Token ids written to the revocation store, by reason.",
		},
		[]string{"reason"},
	)

	revocationsPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identity_revocations_purged_total",
		Help: "Expired revocation entries removed by the sweeper.",
	})

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "identity_ready",
		Help: "1 when the service reports ready, 0 otherwise.",
	})
)

// Init registers all collectors in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			tokensIssued, tokenVerifications, tokensRevoked, revocationsPurged, ready,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTokenIssued counts an issued token. trigger is "login" or "refresh".
func ObserveTokenIssued(trigger string) { tokensIssued.WithLabelValues(trigger).Inc() }

// ObserveVerification counts a verification outcome.
func ObserveVerification(mode, result string) {
	tokenVerifications.WithLabelValues(mode, result).Inc()
}

// ObserveRevocation counts a denylist write.
func ObserveRevocation(reason string) { tokensRevoked.WithLabelValues(reason).Inc() }

// ObservePurged counts entries removed from the denylist.
func ObservePurged(n int64) {
	if n > 0 {
		revocationsPurged.Add(float64(n))
	}
}

// SetReady flips the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Instrument measures request rate, latency and in-flight count.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

var knownPaths = map[string]struct{}{
	"/":                {},
	"/healthz":         {},
	"/readyz":          {},
	"/metrics":         {},
	"/auth/token":      {},
	"/auth/introspect": {},
	"/auth/logout":     {},
	"/auth/refresh":    {},
	"/v1/me":           {},
	"/v1/admin/ping":   {},
}

// CanonicalPath bounds label cardinality: query strings are dropped and
// unknown paths collapse to "other".
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
