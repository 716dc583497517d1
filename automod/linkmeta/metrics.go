package linkmeta

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var linkFetchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_link_metadata_fetches",
	Help: "Number of remote link metadata lookups, by resulting category",
}, []string{"category"})
