package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vulpemventures/utxoprep/internal/core/domain"
	"github.com/vulpemventures/utxoprep/internal/core/ports"
)

const namespace = "utxoprep"

type collector struct {
	requests        *prometheus.CounterVec
	selections      *prometheus.CounterVec
	selectedUtxos   prometheus.Histogram
	selectionTiming prometheus.Histogram
}

// NewCollector returns a prometheus implementation of ports.MetricsCollector
// whose metrics are registered to the given registerer.
func NewCollector(registerer prometheus.Registerer) (ports.MetricsCollector, error) {
	c := &collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prepare_requests_total",
			Help:      "Number of prepare requests by outcome.",
		}, []string{"outcome"}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Number of successful selections by strategy.",
		}, []string{"strategy"}),
		selectedUtxos: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selected_utxos",
			Help:      "Number of utxos per selection.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		selectionTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selection_duration_seconds",
			Help:      "Time spent selecting utxos.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	for _, m := range []prometheus.Collector{
		c.requests, c.selections, c.selectedUtxos, c.selectionTiming,
	} {
		if err := registerer.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *collector) ObserveRequest(outcome string) {
	c.requests.WithLabelValues(outcome).Inc()
}

func (c *collector) ObserveSelection(
	strategy domain.Strategy, numOfUtxos int, elapsed time.Duration,
) {
	c.selections.WithLabelValues(strategy.String()).Inc()
	c.selectedUtxos.Observe(float64(numOfUtxos))
	c.selectionTiming.Observe(elapsed.Seconds())
}
