// README: Prometheus collectors for dispatch, claims, payments and HTTP traffic.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taxibot"

var (
	OffersSent   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "dispatch_offers_sent_total", Help: "Direct order offers delivered to drivers"})
	OffersFailed = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "dispatch_offers_failed_total", Help: "Direct order offers that could not be delivered"})
	ChannelPosts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "dispatch_channel_posts_total", Help: "Orders posted to the public channel"},
		[]string{"reason"},
	)

	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "order_claims_total", Help: "Claim attempts by outcome"},
		[]string{"outcome"},
	)
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "orders_created_total", Help: "Orders created by type"},
		[]string{"type"},
	)

	PaymentsCreated   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "payments_created_total", Help: "Payment intents created"})
	PaymentsConfirmed = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "payments_confirmed_total", Help: "Payments flipped to paid"})
	PointsWrittenOff  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "points_written_off_total", Help: "Loyalty points spent on discounts"})
	PointsExpired     = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "points_expired_riders_total", Help: "Riders whose balance was reset by the nightly sweep"})

	RatingsSubmitted = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "ratings_submitted_total", Help: "Ratings accepted"})

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "jobs_processed_total", Help: "Background jobs by kind and result"},
		[]string{"kind", "result"},
	)

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
