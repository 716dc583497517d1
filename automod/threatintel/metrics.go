package threatintel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var feedRefreshCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_threat_feed_refreshes",
	Help: "Number of threat feed refresh attempts, by feed and outcome",
}, []string{"feed", "status"})

var feedEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "automod_threat_feed_entries",
	Help: "Number of entries in the current threat feed snapshot",
}, []string{"feed"})
