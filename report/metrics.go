package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sinkErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchdog_sink_errors",
	Help: "Number of failed finding deliveries, by sink",
}, []string{"sink"})

var sinkDeliveredCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchdog_sink_delivered",
	Help: "Number of findings delivered, by sink",
}, []string{"sink"})
