package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var workItemsAdded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_dispatcher_work_items_added_total",
	Help: "Total number of work items added to the dispatcher pool",
}, []string{"pool"})

var workItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_dispatcher_work_items_processed_total",
	Help: "Total number of work items processed by the dispatcher pool",
}, []string{"pool"})

var workItemsActive = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_dispatcher_work_items_active_total",
	Help: "Total number of work items passed into a worker",
}, []string{"pool"})

var workersActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "automod_dispatcher_workers_active",
	Help: "Number of workers currently active",
}, []string{"pool"})

var gatewayEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_gateway_events_received_total",
	Help: "Number of events received from the platform gateway, by type",
}, []string{"type"})
