package queue

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instrumentation a Provider reports against.
// Construct one with NewMetrics and register it with WithMetrics; a
// Provider created without one records to unregistered, inert counters.
type Metrics struct {
	puts             prometheus.Counter
	gets             prometheus.Counter
	deletes          prometheus.Counter
	overflowPuts     prometheus.Counter
	overflowOrphaned prometheus.Counter
	retries          prometheus.Counter
}

// NewMetrics builds the counters and registers them against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.puts, m.gets, m.deletes, m.overflowPuts, m.overflowOrphaned, m.retries)
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "puts_total",
			Help:      "Total number of messages enqueued.",
		}),
		gets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "gets_total",
			Help:      "Total number of messages received.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "deletes_total",
			Help:      "Total number of messages acknowledged and removed.",
		}),
		overflowPuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "overflow_puts_total",
			Help:      "Total number of messages routed through the overflow blob store.",
		}),
		overflowOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "overflow_orphaned_total",
			Help:      "Total number of wrapper messages received whose overflow blob was already gone.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "queue",
			Name:      "gateway_retries_total",
			Help:      "Total number of queue/container lazy-creation retries performed.",
		}),
	}
}
