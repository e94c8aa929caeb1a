package monitoring

import (
	"strconv"
	"sync/atomic"
)

// Metric names recorded by the service.
const (
	RequestsTotal           = "http_requests_total"
	EvaluationAccuracy      = "evaluation_accuracy"
	EvaluationFailuresTotal = "evaluation_failures_total"
	SpiralPointsGenerated   = "spiral_points_generated"
)

// ServiceMetrics records the service's domain events on top of a collector.
type ServiceMetrics struct {
	collector *MetricsCollector

	requests    atomic.Int64
	evaluations atomic.Int64
	failures    atomic.Int64
	points      atomic.Int64
}

// NewServiceMetrics creates metrics backed by a fresh collector.
func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{collector: NewMetricsCollector()}
}

// Collector exposes the underlying collector.
func (s *ServiceMetrics) Collector() *MetricsCollector {
	return s.collector
}

func (s *ServiceMetrics) RecordRequest(method, path string, status int) {
	s.requests.Add(1)
	s.collector.IncrCounter(RequestsTotal, 1, map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	})
}

func (s *ServiceMetrics) RecordEvaluation(source string, accuracy float64) {
	s.evaluations.Add(1)
	s.collector.SetGauge(EvaluationAccuracy, accuracy, map[string]string{"source": source})
}

func (s *ServiceMetrics) RecordEvaluationFailure(source string) {
	s.failures.Add(1)
	s.collector.IncrCounter(EvaluationFailuresTotal, 1, map[string]string{"source": source})
}

func (s *ServiceMetrics) RecordSpiral(points int) {
	s.points.Add(int64(points))
	s.collector.IncrCounter(SpiralPointsGenerated, float64(points), nil)
}

// Snapshot is the JSON view served by the metrics endpoint.
type Snapshot struct {
	Requests           int64                  `json:"requests"`
	Evaluations        int64                  `json:"evaluations"`
	EvaluationFailures int64                  `json:"evaluation_failures"`
	PointsGenerated    int64                  `json:"points_generated"`
	Metrics            map[string]Summary     `json:"metrics"`
	System             map[string]interface{} `json:"system"`
}

func (s *ServiceMetrics) Snapshot() Snapshot {
	return Snapshot{
		Requests:           s.requests.Load(),
		Evaluations:        s.evaluations.Load(),
		EvaluationFailures: s.failures.Load(),
		PointsGenerated:    s.points.Load(),
		Metrics:            s.collector.Summaries(),
		System:             s.collector.GetSystemStats(),
	}
}
