package persistence

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		operationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "greeting",
			Name:      "repository_operations_total",
			Help:      "Total number of greeting repository operations.",
		}, []string{"operation", "result"}),
		operationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "greeting",
			Name:      "repository_operation_duration_seconds",
			Help:      "Latency distribution for greeting repository operations.",
			Buckets: []float64{
				0.001, 0.002, 0.005,
				0.01, 0.02, 0.05,
				0.1, 0.2, 0.5,
				1, 2, 5,
			},
		}, []string{"operation", "result"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func (m *metrics) observe(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.operationsTotal.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}
