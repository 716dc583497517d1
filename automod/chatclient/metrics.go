package chatclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var chatAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_chat_api_requests_total",
	Help: "Number of requests made to the chat platform API, by method and status code",
}, []string{"method", "status"})

var chatAPIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "automod_chat_api_duration_sec",
	Help:    "Duration of chat platform API requests",
	Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
}, []string{"method"})
