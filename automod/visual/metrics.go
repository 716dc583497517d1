package visual

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var detectorAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "automod_nudity_detector_api_duration_sec",
	Help: "Duration of nudity region detector API calls",
})

var detectorAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_nudity_detector_api_count",
	Help: "Number of nudity region detector API calls, by HTTP status code",
}, []string{"status"})

var prescreenAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "automod_prescreen_api_duration_sec",
	Help: "Duration of whole-image NSFW classifier API calls",
})

var prescreenAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_prescreen_api_count",
	Help: "Number of whole-image NSFW classifier API calls, by HTTP status code",
}, []string{"status"})
