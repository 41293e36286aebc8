package services

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGatewayMetrics(t *testing.T) {
	metrics := NewGatewayMetrics()

	metrics.ObserveRequest("openai", "SUCCEEDED", 120*time.Millisecond)
	metrics.ObserveRequest("openai", "SUCCEEDED", 80*time.Millisecond)
	metrics.ObserveRequest("", "BAD_REQUEST", time.Millisecond)
	metrics.ObserveRepair(RepairApplied)
	metrics.ObserveRepair(RepairFailed)
	metrics.ObserveRepair(RepairFailed)
	metrics.ObserveProviderStatus("openai", 429)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.requests.WithLabelValues("openai", "SUCCEEDED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.requests.WithLabelValues("unknown", "BAD_REQUEST")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.repairs.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.providerStatus.WithLabelValues("openai", "429")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.duration, "gateway_request_duration_seconds"))

	families, err := metrics.Registry.Gather()
	assert.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "gateway_requests_total")
	assert.Contains(t, names, "go_goroutines")
}
