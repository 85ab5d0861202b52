package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "watchdog_cycle_duration_sec",
	Help: "Total duration of one monitoring cycle",
})

var cycleCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "watchdog_cycles_completed",
	Help: "Number of monitoring cycles completed",
})

var cycleErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "watchdog_cycle_errors",
	Help: "Number of monitoring cycles aborted with an ingestion error",
})

var itemsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "watchdog_items_evaluated",
	Help: "Number of posts run through the detector set",
})

var itemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchdog_items_skipped",
	Help: "Number of posts skipped before evaluation, by reason",
}, []string{"reason"})

var findingCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchdog_findings",
	Help: "Number of findings produced, by detector and severity",
}, []string{"detector", "severity"})

var detectorErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchdog_detector_errors",
	Help: "Number of failed detector evaluations",
}, []string{"detector"})

var advisoryCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "watchdog_reply_advisories",
	Help: "Number of reply advisory notifications delivered",
})

var reflistRefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "watchdog_reflist_refresh_errors",
	Help: "Number of failed reference list refreshes",
})
