package access

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the requests handled by the transport.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsCount     *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg. A nil reg
// leaves them unregistered. Collectors already registered are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of backend requests by access class",
			},
			[]string{"access", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Duration of backend requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"access"},
		),
		ErrorsCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total number of normalized errors by kind",
			},
			[]string{"kind"},
		),
	}

	if reg == nil {
		return m
	}
	m.RequestCount = register(reg, m.RequestCount).(*prometheus.CounterVec)
	m.RequestDuration = register(reg, m.RequestDuration).(*prometheus.HistogramVec)
	m.ErrorsCount = register(reg, m.ErrorsCount).(*prometheus.CounterVec)
	return m
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

func (m *Metrics) observe(class, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(class, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(class).Observe(elapsed.Seconds())
}

func (m *Metrics) failure(kind string) {
	if m == nil || kind == "" {
		return
	}
	m.ErrorsCount.WithLabelValues(kind).Inc()
}
