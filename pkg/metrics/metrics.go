package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Phase labels, in cycle order.
const (
	MetricPhaseResync    = "resync"
	MetricPhaseSnapshot  = "snapshot"
	MetricPhaseExtract   = "extract"
	MetricPhaseTransform = "transform"
	MetricPhaseLoad      = "load"
	MetricPhaseDelete    = "delete"
)

// Object count types.
const (
	MetricRawExtractedResult = "raw_extracted"
	MetricTransformedResult  = "transformed"
	MetricLoadedResult       = "loaded"
	MetricSkippedResult      = "skipped"
	MetricFailedResult       = "failed"
	MetricDeletedResult      = "deleted"
)

// MetricKindReconciliation aggregates cycle-level observations that do not
// belong to a single resource kind.
const MetricKindReconciliation = "__reconciliation__"

var (
	DurationSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "port_sync_engine_duration_seconds",
			Help: "duration of the last run of a phase per kind",
		},
		[]string{"kind", "phase"},
	)
	ObjectCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "port_sync_engine_object_count",
			Help: "object count of the last run of a phase per kind",
		},
		[]string{"kind", "object_count_type", "phase"},
	)
	Success = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "port_sync_engine_success",
			Help: "whether the last run of a phase per kind succeeded",
		},
		[]string{"kind", "phase"},
	)

	registerOnce sync.Once
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(DurationSeconds)
		prometheus.MustRegister(ObjectCount)
		prometheus.MustRegister(Success)
	})
}

func SetDuration(kind, phase string, seconds float64) {
	DurationSeconds.WithLabelValues(kind, phase).Set(seconds)
}

func AddObjectCount(kind, objectCountType, phase string, value float64) {
	ObjectCount.WithLabelValues(kind, objectCountType, phase).Add(value)
}

func SetObjectCount(kind, objectCountType, phase string, value float64) {
	ObjectCount.WithLabelValues(kind, objectCountType, phase).Set(value)
}

func SetSuccess(kind, phase string, success bool) {
	value := 0.0
	if success {
		value = 1.0
	}
	Success.WithLabelValues(kind, phase).Set(value)
}

func StartMetricsServer(logger *zap.SugaredLogger) {
	go func() {
		logger.Infof("Starting metrics server on port %s", "6556")
		RegisterMetrics()
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(":6556", nil)
	}()
}
