// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	NFTsDiscovered  prometheus.Counter
	DiscoveryIssues *prometheus.CounterVec

	// Pricing metrics
	PriceInferences    *prometheus.CounterVec
	SignaturesScanned  *prometheus.CounterVec
	InferenceDuration  prometheus.Histogram
	DumpWrites         *prometheus.CounterVec
	ObservationsLogged prometheus.Counter

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCRetries     *prometheus.CounterVec

	// Off-chain metadata metrics
	OffchainFetchLatency prometheus.Histogram
	OffchainFetchErrors  prometheus.Counter
	OffchainCache        *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulInference prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_nft_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Discovery metrics
		NFTsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "nfts_discovered_total",
			Help:      "Total number of NFT holdings discovered",
		}),
		DiscoveryIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "issues_total",
			Help:      "Total number of per-NFT discovery issues by code",
		}, []string{"issue"}),

		// Pricing metrics
		PriceInferences: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "inferences_total",
			Help:      "Total number of price inferences by outcome",
		}, []string{"outcome"}),
		SignaturesScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "signatures_scanned_total",
			Help:      "Total number of signatures scanned by status",
		}, []string{"status"}),
		InferenceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "inference_duration_seconds",
			Help:      "Duration of a single price inference in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		DumpWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "dump_writes_total",
			Help:      "Total number of dump writes by status",
		}, []string{"status"}),
		ObservationsLogged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "observations_logged_total",
			Help:      "Total number of price observations appended to the log",
		}),

		// Chain metrics
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_retries_total",
			Help:      "Total number of retried Solana RPC attempts",
		}, []string{"method"}),

		// Off-chain metadata metrics
		OffchainFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "offchain",
			Name:      "fetch_latency_seconds",
			Help:      "Off-chain metadata fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OffchainFetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offchain",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed off-chain metadata fetches",
		}),
		OffchainCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "offchain",
			Name:      "cache_lookups_total",
			Help:      "Off-chain metadata cache lookups by result",
		}, []string{"result"}),

		// HTTP metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"route"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulInference: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_inference_timestamp",
			Help:      "Unix timestamp of the last successful price inference",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordNFTsDiscovered adds n discovered holdings.
func RecordNFTsDiscovered(n int) {
	DefaultMetrics.NFTsDiscovered.Add(float64(n))
}

// RecordDiscoveryIssue records a per-NFT discovery issue.
func RecordDiscoveryIssue(issue string) {
	DefaultMetrics.DiscoveryIssues.WithLabelValues(issue).Inc()
}

// RecordInference records the outcome and duration of a price inference.
func RecordInference(outcome string, seconds float64, unixNow int64) {
	DefaultMetrics.PriceInferences.WithLabelValues(outcome).Inc()
	DefaultMetrics.InferenceDuration.Observe(seconds)
	if outcome != "error" {
		DefaultMetrics.LastSuccessfulInference.Set(float64(unixNow))
	}
}

// RecordSignature records a scanned signature by status.
func RecordSignature(status string) {
	DefaultMetrics.SignaturesScanned.WithLabelValues(status).Inc()
}

// RecordDumpWrite records a dump write by status.
func RecordDumpWrite(status string) {
	DefaultMetrics.DumpWrites.WithLabelValues(status).Inc()
}

// RecordObservations adds n appended price observations.
func RecordObservations(n int) {
	DefaultMetrics.ObservationsLogged.Add(float64(n))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCRetry records a retried RPC attempt.
func RecordRPCRetry(method string) {
	DefaultMetrics.RPCRetries.WithLabelValues(method).Inc()
}

// RecordOffchainFetch records an off-chain fetch.
func RecordOffchainFetch(seconds float64, err error) {
	DefaultMetrics.OffchainFetchLatency.Observe(seconds)
	if err != nil {
		DefaultMetrics.OffchainFetchErrors.Inc()
	}
}

// RecordOffchainCache records a cache hit or miss.
func RecordOffchainCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.OffchainCache.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(route string, code int, seconds float64) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
	DefaultMetrics.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

func httpCode(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
