package metrics

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config carries the constant labels attached to every instrument.
type Config struct {
	ServiceName string
	Environment string
}

// Metrics exposes the delivery and admission instruments.
type Metrics struct {
	admissionDecisions *prometheus.CounterVec
	rateLimitDenied    *prometheus.CounterVec
	deliveries         *prometheus.CounterVec
	attemptDuration    *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide metrics registered against the default registerer.
func Default(cfg Config) *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, cfg)
	})
	return defaultMetrics
}

// ResetForTest resets the singleton so tests can register against fresh registries.
func ResetForTest() {
	defaultOnce = sync.Once{}
	defaultMetrics = nil
}

func New(registerer prometheus.Registerer, cfg Config) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "inlet"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	admissionDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "inlet_admission_decisions_total",
		Help:        "Admission controller decisions by outcome and limit type.",
		ConstLabels: constLabels,
	}, []string{"decision", "limit_type"})
	rateLimitDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "inlet_ratelimit_denied_total",
		Help:        "Hourly sliding-window rejections by key class.",
		ConstLabels: constLabels,
	}, []string{"key_class"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "inlet_webhook_deliveries_total",
		Help:        "Webhook delivery attempts by classified outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	attemptDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "inlet_webhook_attempt_duration_seconds",
		Help:        "Webhook attempt latency including the remote response.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"outcome"})

	return &Metrics{
		admissionDecisions: register(registerer, admissionDecisions),
		rateLimitDenied:    register(registerer, rateLimitDenied),
		deliveries:         register(registerer, deliveries),
		attemptDuration:    register(registerer, attemptDuration),
	}
}

// register reuses the already-registered collector when the registerer has
// seen this name before, so repeated New calls against one registry all write
// to the same series. Any other registration error is a programming bug.
func register[T prometheus.Collector](r prometheus.Registerer, c T) T {
	err := r.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector.(T)
	}
	panic(err)
}

func (m *Metrics) IncAdmission(decision, limitType string) {
	if m == nil {
		return
	}
	m.admissionDecisions.WithLabelValues(decision, limitType).Inc()
}

func (m *Metrics) IncRateLimitDenied(keyClass string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(keyClass).Inc()
}

func (m *Metrics) ObserveDelivery(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(outcome).Inc()
	m.attemptDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
