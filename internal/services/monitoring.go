package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds the Prometheus collectors of the gateway
type GatewayMetrics struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	repairs        *prometheus.CounterVec
	providerStatus *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway collectors on a dedicated registry
func NewGatewayMetrics() *GatewayMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(registry)

	return &GatewayMetrics{
		Registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of gateway requests by provider and outcome",
		}, []string{"provider", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Gateway request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		repairs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_repair_total",
			Help: "Structural repair attempts by outcome",
		}, []string{"outcome"}),
		providerStatus: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_provider_status_total",
			Help: "Upstream provider responses by status code",
		}, []string{"provider", "status"}),
	}
}

// ObserveRequest records a finished gateway request
func (m *GatewayMetrics) ObserveRequest(provider, outcome string, elapsed time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	m.requests.WithLabelValues(provider, outcome).Inc()
	m.duration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveRepair records a structural repair outcome
func (m *GatewayMetrics) ObserveRepair(outcome RepairOutcome) {
	m.repairs.WithLabelValues(string(outcome)).Inc()
}

// ObserveProviderStatus records an upstream status code
func (m *GatewayMetrics) ObserveProviderStatus(provider string, status int) {
	m.providerStatus.WithLabelValues(provider, strconv.Itoa(status)).Inc()
}
