package metrics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ContractMetrics tracks contract invocations, emitted events and query API
// traffic.
type ContractMetrics struct {
	invocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	events      *prometheus.CounterVec
	tempPruned  prometheus.Counter
	requests    *prometheus.CounterVec
	throttles   *prometheus.CounterVec
	archived    *prometheus.CounterVec
	streams     prometheus.Gauge

	otelInvocations metric.Int64Counter
	otelLatency     metric.Float64Histogram
}

var (
	contractsOnce     sync.Once
	contractsRegistry *ContractMetrics
)

// Contracts returns the lazily registered contract metrics.
func Contracts() *ContractMetrics {
	contractsOnce.Do(func() {
		contractsRegistry = &ContractMetrics{
			invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "questchain",
				Subsystem: "contract",
				Name:      "invocations_total",
				Help:      "Contract invocations segmented by contract, method and outcome.",
			}, []string{"contract", "method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "questchain",
				Subsystem: "contract",
				Name:      "invocation_duration_seconds",
				Help:      "Latency distribution for contract invocations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"contract", "method"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "questchain",
				Subsystem: "contract",
				Name:      "events_total",
				Help:      "Committed contract events segmented by type.",
			}, []string{"type"}),
			tempPruned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "questchain",
				Subsystem: "state",
				Name:      "temp_pruned_total",
				Help:      "Expired temporary storage records removed.",
			}),
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "questchain",
				Subsystem: "query",
				Name:      "requests_total",
				Help:      "Query API requests segmented by route and status class.",
			}, []string{"route", "status"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "questchain",
				Subsystem: "query",
				Name:      "throttles_total",
				Help:      "Query API requests rejected by the rate limiter.",
			}, []string{"reason"}),
			archived: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "questchain",
				Subsystem: "archive",
				Name:      "records_total",
				Help:      "Event records written to the archive segmented by outcome.",
			}, []string{"outcome"}),
			streams: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "questchain",
				Subsystem: "query",
				Name:      "event_streams",
				Help:      "Open event stream connections.",
			}),
		}
		prometheus.MustRegister(
			contractsRegistry.invocations,
			contractsRegistry.latency,
			contractsRegistry.events,
			contractsRegistry.tempPruned,
			contractsRegistry.requests,
			contractsRegistry.throttles,
			contractsRegistry.archived,
			contractsRegistry.streams,
		)
		contractsRegistry.initMeter()
	})
	return contractsRegistry
}

// initMeter mirrors invocation metrics onto the global OTel meter provider,
// which forwards to the OTLP exporter once telemetry is initialised.
func (m *ContractMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter("questchain/contracts")
	invocations, err := meter.Int64Counter("questchain.contract.invocations")
	if err != nil {
		meter = noop.NewMeterProvider().Meter("questchain/contracts")
		invocations, _ = meter.Int64Counter("questchain.contract.invocations")
	}
	latency, err := meter.Float64Histogram("questchain.contract.invocation.duration", metric.WithUnit("s"))
	if err != nil {
		latency, _ = noop.NewMeterProvider().Meter("questchain/contracts").Float64Histogram("questchain.contract.invocation.duration")
	}
	m.otelInvocations = invocations
	m.otelLatency = latency
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}

// ObserveInvocation records the outcome and latency of one invocation.
func (m *ContractMetrics) ObserveInvocation(contract, method string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	contract, method = label(contract), label(method)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.invocations.WithLabelValues(contract, method, outcome).Inc()
	m.latency.WithLabelValues(contract, method).Observe(duration.Seconds())
	attrs := metric.WithAttributes(
		attribute.String("contract", contract),
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	m.otelInvocations.Add(context.Background(), 1, attrs)
	m.otelLatency.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordEvent counts a committed event.
func (m *ContractMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(label(eventType)).Inc()
}

// RecordTempPruned counts removed temporary records.
func (m *ContractMetrics) RecordTempPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.tempPruned.Add(float64(n))
}

// ObserveRequest records a query API response status.
func (m *ContractMetrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	class := "2xx"
	switch {
	case status >= 500:
		class = "5xx"
	case status >= 400:
		class = "4xx"
	case status >= 300:
		class = "3xx"
	}
	m.requests.WithLabelValues(label(route), class).Inc()
}

// RecordThrottle counts a rate-limited request.
func (m *ContractMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(label(reason)).Inc()
}

// RecordArchived counts records flushed to the event archive.
func (m *ContractMetrics) RecordArchived(n int, err error) {
	if m == nil || n <= 0 {
		return
	}
	outcome := "stored"
	if err != nil {
		outcome = "failed"
	}
	m.archived.WithLabelValues(outcome).Add(float64(n))
}

// StreamOpened tracks an event stream connection until the returned func runs.
func (m *ContractMetrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.streams.Inc()
	return m.streams.Dec
}
