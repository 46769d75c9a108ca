package web

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quadjoin_requests_total",
		Help: "Total number of API requests by endpoint and status code",
	}, []string{"endpoint", "status"})
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quadjoin_request_duration_seconds",
		Help:    "Request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"endpoint"})
	indexedPointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quadjoin_indexed_points_total",
		Help: "Total number of points indexed across all join requests",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(indexedPointsTotal)
}
