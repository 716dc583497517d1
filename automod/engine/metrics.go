package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var itemProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "automod_item_duration_sec",
	Help: "Total duration of automod content item evaluation",
}, []string{"kind"})

var itemProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_item_processed",
	Help: "Number of content items processed, by outcome",
}, []string{"kind", "outcome"})

var itemErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_item_errors",
	Help: "Number of content items which failed processing",
}, []string{"kind"})

var ruleTriggerCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_rule_triggers",
	Help: "Number of items blocked, by rule",
}, []string{"rule"})

var ruleErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_rule_errors",
	Help: "Number of rule executions which were skipped because of errors",
}, []string{"rule"})

var diagnosticCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_rule_diagnostics",
	Help: "Number of flagged-but-not-blocked observations, by rule",
}, []string{"rule"})

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_actions",
	Help: "Number of moderation side effects attempted, by action and status",
}, []string{"action", "status"})

var matcherBuildCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_custom_matcher_builds",
	Help: "Number of per-server word blacklist matchers built",
})

var blobDownloadCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_image_downloads",
	Help: "Number of images downloaded for scoring, by HTTP status code",
}, []string{"status"})

var blobDownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "automod_image_download_duration_sec",
	Help: "Duration of image download attempts",
})
