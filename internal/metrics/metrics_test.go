package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Computations.Inc()
	m.Reloads.WithLabelValues("success").Inc()
	m.Reloads.WithLabelValues("error").Add(2)
	m.DatasetAccounts.Set(42)
	m.ComputeDuration.Observe(0.01)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Computations), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Reloads.WithLabelValues("error")), 0)
	assert.InDelta(t, 42, testutil.ToFloat64(m.DatasetAccounts), 0)

	expected := `
# HELP account_risk_engine_reloads_total Dataset reloads by outcome
# TYPE account_risk_engine_reloads_total counter
account_risk_engine_reloads_total{status="error"} 2
account_risk_engine_reloads_total{status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "account_risk_engine_reloads_total"))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestNew_SeparateRegistries(t *testing.T) {
	// each registry gets its own collectors, so tests never collide
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
