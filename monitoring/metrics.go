// Package monitoring collects in-process service metrics.
package monitoring

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// MetricType is the kind of a metric.
type MetricType string

const (
	MetricTypeCounter MetricType = "counter"
	MetricTypeGauge   MetricType = "gauge"
)

// maxHistory bounds the samples kept per metric name.
const maxHistory = 1000

// Metric is a single recorded sample.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help,omitempty"`
}

// Summary aggregates every retained sample of a metric.
type Summary struct {
	Name      string     `json:"name"`
	Type      MetricType `json:"type"`
	Count     int        `json:"count"`
	Latest    float64    `json:"latest"`
	Min       float64    `json:"min"`
	Max       float64    `json:"max"`
	Average   float64    `json:"average"`
	Total     float64    `json:"total"`
	Timestamp time.Time  `json:"timestamp"`
}

// MetricsCollector keeps a bounded history of samples per metric name.
type MetricsCollector struct {
	metrics     map[string][]*Metric
	metricsLock sync.RWMutex

	startTime time.Time
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:   make(map[string][]*Metric),
		startTime: time.Now(),
	}
}

// RecordMetric stores metric, stamping it with the current time.
func (mc *MetricsCollector) RecordMetric(metric *Metric) {
	mc.metricsLock.Lock()
	defer mc.metricsLock.Unlock()

	metric.Timestamp = time.Now()
	history := append(mc.metrics[metric.Name], metric)
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	mc.metrics[metric.Name] = history
}

// IncrCounter records a counter increment.
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{Name: name, Type: MetricTypeCounter, Value: value, Labels: labels})
}

// SetGauge records a gauge value.
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.RecordMetric(&Metric{Name: name, Type: MetricTypeGauge, Value: value, Labels: labels})
}

// GetMetric returns a copy of the retained samples for name.
func (mc *MetricsCollector) GetMetric(name string) ([]*Metric, error) {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	metrics, ok := mc.metrics[name]
	if !ok {
		return nil, fmt.Errorf("metric %s not found", name)
	}
	result := make([]*Metric, len(metrics))
	for i, m := range metrics {
		metricCopy := *m
		result[i] = &metricCopy
	}
	return result, nil
}

// GetMetricSummary aggregates the retained samples for name.
func (mc *MetricsCollector) GetMetricSummary(name string) (Summary, error) {
	metrics, err := mc.GetMetric(name)
	if err != nil {
		return Summary{}, err
	}
	return summarize(name, metrics), nil
}

// Summaries aggregates every known metric.
func (mc *MetricsCollector) Summaries() map[string]Summary {
	mc.metricsLock.RLock()
	defer mc.metricsLock.RUnlock()

	result := make(map[string]Summary, len(mc.metrics))
	for name, metrics := range mc.metrics {
		result[name] = summarize(name, metrics)
	}
	return result
}

func summarize(name string, metrics []*Metric) Summary {
	s := Summary{Name: name, Count: len(metrics)}
	if len(metrics) == 0 {
		return s
	}
	last := metrics[len(metrics)-1]
	s.Type = last.Type
	s.Latest = last.Value
	s.Timestamp = last.Timestamp
	s.Min = metrics[0].Value
	s.Max = metrics[0].Value
	for _, m := range metrics {
		s.Total += m.Value
		s.Min = min(s.Min, m.Value)
		s.Max = max(s.Max, m.Value)
	}
	s.Average = s.Total / float64(len(metrics))
	return s
}

// GetUptime returns the time since the collector was created.
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSystemStats reports runtime figures for the process.
func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"alloc":      m.Alloc,
			"heap_alloc": m.HeapAlloc,
			"heap_sys":   m.HeapSys,
			"gc_count":   m.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}
