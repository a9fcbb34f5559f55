// Package metrics holds the Prometheus instrumentation for the engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the engine's collectors. Collectors are created
// unregistered so embedded engines pay nothing unless they call Register.
type Metrics struct {
	Materializations *prometheus.CounterVec
	SkipSentinels    prometheus.Counter
	ParseFailures    prometheus.Counter
	ReadinessSeconds prometheus.Histogram
	CorruptEnvelopes prometheus.Counter
}

// New creates the collector set.
func New() *Metrics {
	return &Metrics{
		Materializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "materializations_total",
			Help:      "Artifact envelopes written, by stage and branch disposition.",
		}, []string{"stage", "branched"}),
		SkipSentinels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "skip_sentinels_total",
			Help:      "Skip sentinels written for optional stages.",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "parse_failures_total",
			Help:      "Manifest/script documents rejected by the parser.",
		}),
		ReadinessSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weft",
			Name:      "readiness_query_seconds",
			Help:      "Wall time of full-graph readiness queries.",
			Buckets:   prometheus.DefBuckets,
		}),
		CorruptEnvelopes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weft",
			Name:      "corrupt_envelopes_total",
			Help:      "Envelopes that could not be decoded during readiness queries.",
		}),
	}
}

// Register attaches every collector to the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.Materializations,
		m.SkipSentinels,
		m.ParseFailures,
		m.ReadinessSeconds,
		m.CorruptEnvelopes,
	)
}
