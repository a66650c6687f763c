package store

import "github.com/prometheus/client_golang/prometheus"

var MergeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "store",
	Name:      "merges",
}, []string{"changed"})

var WriteCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "store",
	Name:      "writes",
})

var SkippedWriteCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "store",
	Name:      "skipped_writes",
})

var BroadcastErrorCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "classmodel",
	Subsystem: "store",
	Name:      "broadcast_errors",
})
