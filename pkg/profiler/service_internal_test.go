package profiler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name string
		opts ServiceOpts
	}{
		{
			name: "missing datadir",
			opts: ServiceOpts{Port: 18011, StatsInterval: time.Minute},
		},
		{
			name: "port out of range",
			opts: ServiceOpts{Port: 80, StatsInterval: time.Minute, Datadir: "stats"},
		},
		{
			name: "zero stats interval",
			opts: ServiceOpts{Port: 18011, Datadir: "stats"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.opts)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := newRegistry(t)
	srv := httptest.NewServer(newMux(registry))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "profiler_test_total 3")

	res, err = http.Get(srv.URL + "/debug/pprof/")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestDumpMetrics(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewService(ServiceOpts{
		Port:          18011,
		StatsInterval: time.Minute,
		Datadir:       dir,
		Gatherer:      newRegistry(t),
	})
	require.NoError(t, err)

	err = svc.dumpMetrics(dir)
	require.NoError(t, err)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	buf, err := os.ReadFile(dir + "/" + files[0].Name())
	require.NoError(t, err)
	require.True(t, strings.Contains(string(buf), "profiler_test_total"))
}

func newRegistry(t *testing.T) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "profiler_test_total",
		Help: "Test counter.",
	})
	require.NoError(t, registry.Register(counter))
	counter.Add(3)
	return registry
}
