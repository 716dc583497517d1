package textclass

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var textclassAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "automod_textclass_api_duration_sec",
	Help: "Duration of text toxicity classification API calls",
})

var textclassAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_textclass_api_count",
	Help: "Number of text toxicity classification API calls, by HTTP status code",
}, []string{"status"})
