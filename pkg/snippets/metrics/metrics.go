// Package metrics exposes snippet engine activity as Prometheus metrics.
//
// Size gauges carry a "session" label so that engines sharing one Collector
// report side by side. Counters are process totals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
)

// Collector mirrors engine sizes into gauges and counts validation verdicts
// and committed changes. Used directly as a snippets.Observer it reports
// under an empty session label; Session hands out observers for named ones.
type Collector struct {
	Snippets    *prometheus.GaugeVec
	Pipelines   *prometheus.GaugeVec
	GraphEdges  *prometheus.GaugeVec
	Validations *prometheus.CounterVec
	Mutations   *prometheus.CounterVec
}

// NewCollector registers the metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Snippets: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "snippets_live",
			Help: "Number of snippets in the engine",
		}, []string{"session"}),
		Pipelines: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "snippets_pipelines_live",
			Help: "Number of pipelines in the engine",
		}, []string{"session"}),
		GraphEdges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "snippets_graph_edges",
			Help: "Number of snippet-level edges in the topology graph",
		}, []string{"session"}),
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "snippets_pipeline_validations_total",
			Help: "Pipeline validations by verdict",
		}, []string{"result"}),
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "snippets_mutations_total",
			Help: "Committed engine changes by kind",
		}, []string{"kind"}),
	}
}

// Observe implements snippets.Observer.
func (c *Collector) Observe(e snippets.Event) { c.observe("", e) }

// Session returns an observer reporting under the given session label.
func (c *Collector) Session(id string) snippets.Observer {
	return snippets.ObserverFunc(func(e snippets.Event) { c.observe(id, e) })
}

// Forget drops the gauges of a closed session.
func (c *Collector) Forget(id string) {
	c.Snippets.DeleteLabelValues(id)
	c.Pipelines.DeleteLabelValues(id)
	c.GraphEdges.DeleteLabelValues(id)
}

func (c *Collector) observe(session string, e snippets.Event) {
	c.Snippets.WithLabelValues(session).Set(float64(e.Stats.Snippets))
	c.Pipelines.WithLabelValues(session).Set(float64(e.Stats.Pipelines))
	c.GraphEdges.WithLabelValues(session).Set(float64(e.Stats.GraphEdges))

	if e.Kind == snippets.EventPipelineValidated {
		result := "rejected"
		if e.Valid {
			result = "accepted"
		}
		c.Validations.WithLabelValues(result).Inc()
		return
	}
	c.Mutations.WithLabelValues(string(e.Kind)).Inc()
}
