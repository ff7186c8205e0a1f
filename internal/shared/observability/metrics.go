package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vcdscan_ingest_seconds",
		Help:    "Time spent parsing and sampling a dump file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	RecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcdscan_value_changes_total",
		Help: "Total number of value-change records applied.",
	})

	BytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcdscan_input_bytes_total",
		Help: "Total number of dump bytes consumed.",
	})

	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcdscan_cycles_total",
		Help: "Total number of cycles captured, by clock edge.",
	}, []string{"edge"})

	SkippedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcdscan_skipped_records_total",
		Help: "Total number of value-change records skipped in lenient mode, by error code.",
	}, []string{"code"})

	SignalsDeclared = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcdscan_signals_declared",
		Help: "Number of signals declared by the most recently loaded dump.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcdscan_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
