package snippets

import "github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"

// EventKind names a committed change.
type EventKind string

const (
	EventSnippetCreated    EventKind = "snippet_created"
	EventSnippetDeleted    EventKind = "snippet_deleted"
	EventPipelineCreated   EventKind = "pipeline_created"
	EventPipelineDeleted   EventKind = "pipeline_deleted"
	EventPipelineValidated EventKind = "pipeline_validated"
)

// Stats is a point-in-time size summary of a Manager.
type Stats struct {
	Snippets   int `json:"snippets"`
	Connectors int `json:"connectors"`
	Parameters int `json:"parameters"`
	Pipelines  int `json:"pipelines"`
	GraphNodes int `json:"graph_nodes"`
	GraphEdges int `json:"graph_edges"`
}

// Event describes one change. For EventPipelineValidated, Valid carries the
// verdict.
type Event struct {
	Kind  EventKind
	ID    core.ID
	Valid bool
	Stats Stats
}

// Observer receives events synchronously, while the caller still holds
// whatever lock guards the Manager. Implementations must not call back into
// the Manager.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

func (m *Manager) notify(kind EventKind, id core.ID, valid bool) {
	if len(m.observers) == 0 {
		return
	}
	ev := Event{Kind: kind, ID: id, Valid: valid, Stats: m.Stats()}
	for _, o := range m.observers {
		o.Observe(ev)
	}
}
