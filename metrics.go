package classmodel

import "github.com/prometheus/client_golang/prometheus"

var MergeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "merge",
	Name:      "applied",
}, []string{"type", "changed"})

var NotifyFlushCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "notify",
	Name:      "flushes",
}, []string{"kind"})

var ListenerErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "notify",
	Name:      "listener_errors",
})
