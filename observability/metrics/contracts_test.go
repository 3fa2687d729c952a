package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestObserveInvocationCountsOutcomes(t *testing.T) {
	m := Contracts()
	require.Same(t, m, Contracts())

	before := testutil.ToFloat64(m.invocations.WithLabelValues("staking", "stake", "error"))
	m.ObserveInvocation("staking", "stake", errors.New("boom"), time.Millisecond)
	m.ObserveInvocation("staking", "stake", nil, time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(m.invocations.WithLabelValues("staking", "stake", "error")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.invocations.WithLabelValues("staking", "stake", "success")), 1.0)
}

func latencySamples(t *testing.T, m *ContractMetrics, contract, method string) (uint64, float64) {
	t.Helper()
	metric, ok := m.latency.WithLabelValues(contract, method).(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	return out.GetHistogram().GetSampleCount(), out.GetHistogram().GetSampleSum()
}

func TestObserveInvocationRecordsLatency(t *testing.T) {
	m := Contracts()
	count, sum := latencySamples(t, m, "energy", "gift")
	m.ObserveInvocation("energy", "gift", nil, 250*time.Millisecond)
	m.ObserveInvocation("energy", "gift", errors.New("boom"), 750*time.Millisecond)

	gotCount, gotSum := latencySamples(t, m, "energy", "gift")
	require.Equal(t, count+2, gotCount)
	require.InDelta(t, sum+1.0, gotSum, 1e-9)
}

func TestRequestStatusClasses(t *testing.T) {
	m := Contracts()
	m.ObserveRequest("", 404)
	require.GreaterOrEqual(t, testutil.ToFloat64(m.requests.WithLabelValues("unknown", "4xx")), 1.0)
}

func TestStreamGaugeAndNilReceiver(t *testing.T) {
	m := Contracts()
	start := testutil.ToFloat64(m.streams)
	closeStream := m.StreamOpened()
	require.Equal(t, start+1, testutil.ToFloat64(m.streams))
	closeStream()
	require.Equal(t, start, testutil.ToFloat64(m.streams))

	var nilMetrics *ContractMetrics
	nilMetrics.ObserveInvocation("a", "b", nil, 0)
	nilMetrics.RecordArchived(3, nil)
	nilMetrics.StreamOpened()()
}
