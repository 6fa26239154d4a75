package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_requests_total",
			Help: "Total number of oracle completion calls by model and outcome",
		},
		[]string{"model", "outcome"},
	)
	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_request_duration_seconds",
			Help:    "Oracle completion call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"model"},
	)
	OraclePromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oracle_prompt_tokens",
			Help:    "Estimated prompt tokens per oracle call",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3200},
		},
		[]string{"model"},
	)
	OracleCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_response_cache_total",
			Help: "Oracle response cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
	OracleBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_circuit_breaker_state",
			Help: "Oracle circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)

	AnalysisCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_cache_total",
			Help: "Analysis cache lookups by result (hit, miss, stale)",
		},
		[]string{"result"},
	)
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_compute_duration_seconds",
			Help:    "Time spent computing an analysis on cache miss",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)
	DimensionFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_dimension_fallbacks_total",
			Help: "Total number of dimensions that fell back to the neutral score",
		},
		[]string{"dimension"},
	)
	VerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_verdicts_total",
			Help: "Total number of computed analyses by verdict",
		},
		[]string{"verdict"},
	)
	OverallScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_overall_score",
			Help:    "Distribution of overall match score (normalized fraction [0,1])",
			Buckets: []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)
	CleanupDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_cleanup_deleted_total",
			Help: "Total number of analyses removed by the retention job",
		},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(OracleRequestsTotal)
		prometheus.MustRegister(OracleRequestDuration)
		prometheus.MustRegister(OraclePromptTokens)
		prometheus.MustRegister(OracleCacheTotal)
		prometheus.MustRegister(OracleBreakerState)
		prometheus.MustRegister(AnalysisCacheTotal)
		prometheus.MustRegister(AnalysisDuration)
		prometheus.MustRegister(DimensionFallbacksTotal)
		prometheus.MustRegister(VerdictsTotal)
		prometheus.MustRegister(OverallScoreHistogram)
		prometheus.MustRegister(CleanupDeletedTotal)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// ObserveOracleCall records one completion call.
func ObserveOracleCall(model, outcome string, dur time.Duration) {
	OracleRequestsTotal.WithLabelValues(model, outcome).Inc()
	OracleRequestDuration.WithLabelValues(model).Observe(dur.Seconds())
}

// ObserveAnalysis records the outcome of a freshly computed analysis.
func ObserveAnalysis(overall float64, verdict string, dur time.Duration) {
	if overall >= 0 && overall <= 1 {
		OverallScoreHistogram.Observe(overall)
	}
	VerdictsTotal.WithLabelValues(verdict).Inc()
	AnalysisDuration.Observe(dur.Seconds())
}

// RecordFallback counts a dimension that degraded to its neutral fallback.
func RecordFallback(dimension string) {
	DimensionFallbacksTotal.WithLabelValues(dimension).Inc()
}

// RecordAnalysisCache counts an analysis cache lookup result.
func RecordAnalysisCache(result string) {
	AnalysisCacheTotal.WithLabelValues(result).Inc()
}
