package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricSummary(t *testing.T) {
	mc := NewMetricsCollector()
	mc.SetGauge("accuracy", 0.5, nil)
	mc.SetGauge("accuracy", 1, nil)
	mc.SetGauge("accuracy", 0, nil)

	s, err := mc.GetMetricSummary("accuracy")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, MetricTypeGauge, s.Type)
	assert.Equal(t, 0.0, s.Latest)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.InDelta(t, 0.5, s.Average, 1e-12)

	_, err = mc.GetMetricSummary("missing")
	assert.Error(t, err)
}

func TestMetricHistoryIsBounded(t *testing.T) {
	mc := NewMetricsCollector()
	for i := 0; i < maxHistory+50; i++ {
		mc.IncrCounter("requests", 1, nil)
	}
	metrics, err := mc.GetMetric("requests")
	require.NoError(t, err)
	assert.Len(t, metrics, maxHistory)
}

func TestServiceMetricsSnapshot(t *testing.T) {
	sm := NewServiceMetrics()
	sm.RecordRequest("GET", "/", 200)
	sm.RecordRequest("GET", "/api/spiral", 400)
	sm.RecordEvaluation("root", 2.0/3.0)
	sm.RecordEvaluationFailure("api")
	sm.RecordSpiral(300)

	snap := sm.Snapshot()
	assert.Equal(t, int64(2), snap.Requests)
	assert.Equal(t, int64(1), snap.Evaluations)
	assert.Equal(t, int64(1), snap.EvaluationFailures)
	assert.Equal(t, int64(300), snap.PointsGenerated)
	assert.InDelta(t, 2.0/3.0, snap.Metrics[EvaluationAccuracy].Latest, 1e-12)
	assert.Equal(t, 2.0, snap.Metrics[RequestsTotal].Total)
	assert.Contains(t, snap.System, "uptime")
}
