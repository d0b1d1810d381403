package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routing and session metrics
var (
	RouteDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymhub_route_decisions_total",
			Help: "Total number of tenant routing decisions by action",
		},
		[]string{"action"}, // pass_through, rewrite
	)

	SessionRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymhub_session_rejections_total",
			Help: "Total number of rejected sessions by flow and reason",
		},
		[]string{"flow", "reason"},
	)

	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymhub_logins_total",
			Help: "Total number of OAuth login attempts by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymhub_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

// HTTP metrics
var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymhub_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		RouteDecisions,
		SessionRejections,
		Logins,
		RateLimited,
		HTTPRequests,
		RequestDuration,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
