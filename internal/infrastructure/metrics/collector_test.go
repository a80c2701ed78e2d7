package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/infrastructure/metrics"
)

func TestCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	c, err := metrics.NewCollector(registry)
	require.NoError(t, err)

	c.ObserveRequest("ok")
	c.ObserveRequest("ok")
	c.ObserveRequest("no_utxos")
	c.ObserveSelection(domain.StrategyExactMatch, 2, time.Millisecond)

	count, err := testutil.GatherAndCount(registry, "utxoprep_prepare_requests_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	families, err := registry.Gather()
	require.NoError(t, err)
	found := make(map[string]bool)
	for _, f := range families {
		found[f.GetName()] = true
	}
	require.True(t, found["utxoprep_selections_total"])
	require.True(t, found["utxoprep_selected_utxos"])
	require.True(t, found["utxoprep_selection_duration_seconds"])

	_, err = metrics.NewCollector(registry)
	require.Error(t, err)
}
