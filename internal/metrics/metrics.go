package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recipeclip"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5},
	}, []string{"method", "route"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "External provider calls by provider and outcome status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "External provider call duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 5},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_available",
		Help:      "Whether a provider's circuit breaker is closed (1) or open (0).",
	}, []string{"provider"})

	SuggestionCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestion_cache_hits_total",
		Help:      "Autocomplete lookups answered from cache.",
	})

	SuggestionCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestion_cache_misses_total",
		Help:      "Autocomplete lookups that required a computation.",
	})

	SuggestionCacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestion_cache_evictions_total",
		Help:      "Entries evicted from the in-memory suggestion cache.",
	})

	DiscoveryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "discovery_requests_total",
		Help:      "Discovery requests by kind (browse, search, autocomplete).",
	}, []string{"kind"})

	ImportedRecipesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "imported_recipes_total",
		Help:      "Recipes processed by the bulk importer by result.",
	}, []string{"result"})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		SuggestionCacheHits,
		SuggestionCacheMisses,
		SuggestionCacheEvictions,
		DiscoveryRequestsTotal,
		ImportedRecipesTotal,
	)
}
