package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesChecked = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatmod_messages_checked",
	Help: "Number of messages evaluated, by resulting filter type and action",
}, []string{"filter_type", "action"})

var evaluationErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatmod_evaluation_errors",
	Help: "Number of message evaluations which failed",
})

var evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "chatmod_evaluation_duration_sec",
	Help:    "Duration of single message evaluation",
	Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
})

var batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "chatmod_batch_size",
	Help:    "Number of messages in batch evaluation requests",
	Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
})

var configResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatmod_config_resolutions",
	Help: "Community configuration lookups, by kind and where the value came from (cache, store, default)",
}, []string{"kind", "source"})

var whitelistErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatmod_whitelist_errors",
	Help: "Number of whitelist lookups which failed (treated as not whitelisted)",
})

var violationLogWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatmod_violation_log_writes",
	Help: "Violation log writes, by status (ok, error, dropped)",
}, []string{"status"})
