package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ingestEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automodd_ingest_events_received",
	Help: "Number of events received over the HTTP ingest API, by event type",
}, []string{"type"})
