package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transfer"

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "searches_total", Help: "Vehicle searches by outcome (matched, empty, no_route, error)"},
		[]string{"outcome"},
	)
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "search_latency_seconds", Help: "Vehicle search latency seconds"})

	ReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "reservations_total", Help: "Reservations written"})
	CheckoutFailures  = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "checkout_failures_total", Help: "Checkouts aborted by reason"},
		[]string{"reason"},
	)

	WSClients          = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "ws_clients", Help: "Connected notification sockets"})
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_published_total", Help: "Room notifications published"},
		[]string{"room"},
	)
	LoyaltyRedemptions = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "loyalty_redemptions_total", Help: "Successful loyalty redemptions"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
