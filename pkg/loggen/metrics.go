package loggen

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
	lastSuccess   prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		cyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loggen",
			Name:      "cycles_total",
			Help:      "Total number of log generation cycles.",
		}, []string{"result"}),
		cycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loggen",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of log generation cycles.",
			Buckets: []float64{
				0.001, 0.005, 0.01, 0.05,
				0.1, 0.5, 1, 5, 30,
			},
		}, []string{"result"}),
		lastSuccess: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "loggen",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last committed log generation cycle.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

func (m *metrics) observe(start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cyclesTotal.WithLabelValues(result).Inc()
	m.cycleDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err == nil {
		m.lastSuccess.SetToCurrentTime()
	}
}
