package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the assessment pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	analyses          *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	sessionsCompleted prometheus.Counter
	catalogFallbacks  prometheus.Counter
	httpRequests      *prometheus.HistogramVec
}

// MustNewMetrics constructs and registers the collectors. Registration errors
// panic, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gifts",
			Subsystem: "insight",
			Name:      "analyses_total",
			Help:      "Completed analyses by the tier that produced the narrative.",
		}, []string{"tier"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gifts",
			Subsystem: "insight",
			Name:      "cache_lookups_total",
			Help:      "Analysis cache lookups by result.",
		}, []string{"result"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gifts",
			Subsystem: "insight",
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of AI provider and server tier calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gifts",
			Subsystem: "assessment",
			Name:      "sessions_completed_total",
			Help:      "Assessment sessions completed and scored.",
		}),
		catalogFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gifts",
			Subsystem: "assessment",
			Name:      "catalog_fallbacks_total",
			Help:      "Times the built-in catalog replaced an unavailable content store.",
		}),
		httpRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gifts",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.analyses, m.cacheLookups, m.providerLatency, m.sessionsCompleted, m.catalogFallbacks, m.httpRequests)
	return m
}

func (m *Metrics) AnalysisCompleted(tier string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(tier).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ProviderCall(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.providerLatency.WithLabelValues(provider, status).Observe(time.Since(started).Seconds())
}

func (m *Metrics) SessionCompleted() {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
}

func (m *Metrics) CatalogFallback() {
	if m == nil {
		return
	}
	m.catalogFallbacks.Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
