package sweetcache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts cache lookups. A nil *Metrics records nothing.
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweetcache_hits_total",
			Help: "Number of cache lookups that found a live value",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweetcache_misses_total",
			Help: "Number of cache lookups that found nothing",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweetcache_errors_total",
			Help: "Number of failed cache operations by operation",
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) errorOn(op string) {
	if m != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}
