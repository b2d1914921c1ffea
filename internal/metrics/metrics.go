package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache reads served from a live entry
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache reads that found no live entry
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// CacheExpired tracks entries removed because their TTL elapsed
	CacheExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_expired_total",
			Help: "Total number of cache entries removed after expiry",
		},
	)

	// CacheSize tracks the number of entries held by the in-memory cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cache_entries",
			Help: "Number of entries currently held in the in-memory cache",
		},
	)

	// RetryAttempts tracks retries scheduled per operation
	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_retry_attempts_total",
			Help: "Total number of retries scheduled after a transient failure",
		},
		[]string{"operation"},
	)

	// RetryExhausted tracks operations that failed after every attempt
	RetryExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_retry_exhausted_total",
			Help: "Total number of operations that exhausted their attempts",
		},
		[]string{"operation"},
	)

	// ClientRequests tracks API client calls by outcome
	ClientRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_client_requests_total",
			Help: "Total number of API client requests",
		},
		[]string{"method", "outcome"},
	)

	// ClientLatency tracks API client request latency
	ClientLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_client_latency_seconds",
			Help:    "API client request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RateLimitRejections tracks requests rejected by the limiter
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"namespace"},
	)

	// OTPIssued tracks one-time codes handed to the mailer
	OTPIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_otp_issued_total",
			Help: "Total number of one-time codes issued",
		},
	)

	// OTPVerifications tracks code checks by result
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_otp_verifications_total",
			Help: "Total number of one-time code verifications",
		},
		[]string{"result"},
	)

	// HTTPRequests tracks server requests by route and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// DBConnectionPoolUsage tracks the share of open database connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_db_connection_pool_usage_percent",
			Help: "Open database connections as a percentage of the pool limit",
		},
	)
)
