package cachestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_cache_lookups_total",
	Help: "Typed cache lookups, by cache name and result (hit, miss, absent, error)",
}, []string{"name", "result"})
