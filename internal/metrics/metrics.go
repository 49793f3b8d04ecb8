// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridehail"

// Claim outcomes recorded by ClaimAttempts.
const (
	ClaimWon      = "won"
	ClaimLost     = "lost"
	ClaimRejected = "rejected"
)

var (
	RidesRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rides_requested_total", Help: "Rides booked by riders"},
		[]string{"category"},
	)
	RidesExpired   = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_expired_total", Help: "Requested rides cancelled by the expiry sweep"})
	RidesCancelled = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_cancelled_total", Help: "Rides cancelled by riders"})
	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_completed_total", Help: "Rides completed by drivers"})

	ClaimAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "claim_attempts_total", Help: "Ride accept attempts by outcome"},
		[]string{"outcome"},
	)
	TimeToAccept = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "time_to_accept_seconds",
		Help:      "Time between booking and driver acceptance",
		Buckets:   []float64{5, 15, 30, 60, 120, 180, 240, 300},
	})
	FareTotal = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fare_total",
			Help:      "Fare totals of completed rides",
			Buckets:   prometheus.ExponentialBuckets(50, 2, 8),
		},
		[]string{"category"},
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
