package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObjectCountAddAndSet(t *testing.T) {
	RegisterMetrics()
	ObjectCount.Reset()

	AddObjectCount("service", MetricLoadedResult, MetricPhaseLoad, 3)
	AddObjectCount("service", MetricLoadedResult, MetricPhaseLoad, 2)
	assert.Equal(t, 5.0, testutil.ToFloat64(ObjectCount.WithLabelValues("service", MetricLoadedResult, MetricPhaseLoad)))

	SetObjectCount("service", MetricLoadedResult, MetricPhaseLoad, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(ObjectCount.WithLabelValues("service", MetricLoadedResult, MetricPhaseLoad)))
}

func TestSetSuccess(t *testing.T) {
	RegisterMetrics()
	Success.Reset()

	SetSuccess(MetricKindReconciliation, MetricPhaseResync, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(Success.WithLabelValues(MetricKindReconciliation, MetricPhaseResync)))

	SetSuccess(MetricKindReconciliation, MetricPhaseResync, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(Success.WithLabelValues(MetricKindReconciliation, MetricPhaseResync)))
}
