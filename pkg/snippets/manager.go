// Package snippets maintains the graph of snippets and the pipelines that join
// their connectors.
//
// A Manager owns four structures that must agree at all times: the snippet
// table, the connector and parameter indexes, the pipeline table with its
// per-connector fan-out sets, and a snippet-level topology.Graph mirror used
// for cycle detection. A Manager is single-writer: the caller serialises every
// call, typically one Manager per editing session (see package session).
package snippets

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/topology"
)

// Manager is the snippet graph engine.
type Manager struct {
	ids *core.IDGenerator

	snippets   map[SnippetID]*Snippet
	connectors map[ConnectorID]SnippetID
	parameters map[ParameterID]SnippetID

	pipelines map[PipelineID]*Pipeline
	fanout    map[ConnectorID]mapset.Set[PipelineID]

	graph *topology.Graph
	nodes map[topology.NodeIndex]SnippetID

	logger            zerolog.Logger
	observers         []Observer
	contentTypeChecks bool
	capacity          int
}

// NewManager creates an empty engine drawing ids from gen. Share gen between
// managers to keep ids unique across the process.
func NewManager(gen *core.IDGenerator, opts ...Option) *Manager {
	m := &Manager{
		ids:      gen,
		logger:   zerolog.Nop(),
		capacity: 12,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ids == nil {
		m.ids = core.NewIDGenerator()
	}

	m.snippets = make(map[SnippetID]*Snippet, m.capacity)
	m.connectors = make(map[ConnectorID]SnippetID, m.capacity*2)
	m.parameters = make(map[ParameterID]SnippetID, m.capacity)
	m.pipelines = make(map[PipelineID]*Pipeline, m.capacity)
	m.fanout = make(map[ConnectorID]mapset.Set[PipelineID], m.capacity*2)
	m.graph = topology.New()
	m.nodes = make(map[topology.NodeIndex]SnippetID, m.capacity)
	return m
}

// NewSnippet instantiates def: one connector per declared port (outputs first,
// then inputs, each in declared order), one parameter per declared parameter
// at its kind's default value, and one isolated node in the topology graph.
func (m *Manager) NewSnippet(def Definition) SnippetID {
	node := m.graph.AddNode()

	s := &Snippet{
		id:         SnippetID(m.ids.Next()),
		name:       def.Name,
		definition: def.ID,
		connectors: make([]Connector, 0, def.PortCount()),
		parameters: make([]*Parameter, 0, len(def.Parameters)),
		node:       node,
	}

	for _, p := range def.Outputs {
		s.connectors = append(s.connectors, Connector{
			id:        ConnectorID(m.ids.Next()),
			port:      p.ID,
			name:      p.Name,
			direction: Output,
			content:   p.ContentType,
		})
	}
	for _, p := range def.Inputs {
		s.connectors = append(s.connectors, Connector{
			id:        ConnectorID(m.ids.Next()),
			port:      p.ID,
			name:      p.Name,
			direction: Input,
			content:   p.ContentType,
		})
	}
	for _, spec := range def.Parameters {
		s.parameters = append(s.parameters, &Parameter{
			id:    ParameterID(m.ids.Next()),
			name:  spec.Name,
			kind:  spec.Kind,
			value: spec.Kind.Default(),
		})
	}

	for _, c := range s.connectors {
		m.connectors[c.id] = s.id
	}
	for _, p := range s.parameters {
		m.parameters[p.id] = s.id
	}
	m.nodes[node] = s.id
	m.snippets[s.id] = s

	m.logger.Debug().
		Uint32("snippet_id", uint32(s.id)).
		Str("name", s.name).
		Uint32("definition_id", uint32(def.ID)).
		Int("connectors", len(s.connectors)).
		Int("parameters", len(s.parameters)).
		Msg("snippet created")

	m.notify(EventSnippetCreated, core.ID(s.id), false)
	return s.id
}

// DeleteSnippet removes a snippet, its connectors and its parameters.
//
// The snippet must already be disconnected: if any of its connectors still
// carries a pipeline the call fails with core.ErrStructural and nothing is
// changed. Use DisconnectSnippet first to tear pipelines down.
func (m *Manager) DeleteSnippet(id SnippetID) error {
	const op = "delete snippet"

	s, ok := m.snippets[id]
	if !ok {
		return core.NotFound("snippet", core.ID(id))
	}

	for _, c := range s.connectors {
		if set, busy := m.fanout[c.id]; busy && set.Cardinality() > 0 {
			return &core.StructuralError{
				Op:     op,
				Reason: fmt.Sprintf("connector %s of snippet %s still carries %d pipeline(s)", c.id, id, set.Cardinality()),
			}
		}
	}

	// Check every index entry before touching anything.
	for _, c := range s.connectors {
		if owner, ok := m.connectors[c.id]; !ok || owner != id {
			return m.invariant(op, "connector %s of snippet %s missing from connector index", c.id, id)
		}
	}
	for _, p := range s.parameters {
		if owner, ok := m.parameters[p.id]; !ok || owner != id {
			return m.invariant(op, "parameter %s of snippet %s missing from parameter index", p.id, id)
		}
	}
	if !m.graph.ContainsNode(s.node) {
		return m.invariant(op, "graph node %d of snippet %s missing", s.node, id)
	}

	for _, c := range s.connectors {
		delete(m.connectors, c.id)
	}
	for _, p := range s.parameters {
		delete(m.parameters, p.id)
	}
	dropped, _ := m.graph.RemoveNode(s.node)
	delete(m.nodes, s.node)
	delete(m.snippets, id)

	m.logger.Debug().
		Uint32("snippet_id", uint32(id)).
		Int("dropped_edges", dropped).
		Msg("snippet deleted")

	m.notify(EventSnippetDeleted, core.ID(id), false)
	return nil
}

// DisconnectSnippet deletes every pipeline touching the snippet and returns
// how many were removed.
func (m *Manager) DisconnectSnippet(id SnippetID) (int, error) {
	s, ok := m.snippets[id]
	if !ok {
		return 0, core.NotFound("snippet", core.ID(id))
	}

	touching := mapset.NewThreadUnsafeSet[PipelineID]()
	for _, c := range s.connectors {
		if set, ok := m.fanout[c.id]; ok {
			touching = touching.Union(set)
		}
	}

	ids := touching.ToSlice()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for n, pid := range ids {
		if err := m.DeletePipeline(pid); err != nil {
			return n, fmt.Errorf("disconnect snippet %s: %w", id, err)
		}
	}
	return len(ids), nil
}

// FindSnippet returns the snippet with the given id.
func (m *Manager) FindSnippet(id SnippetID) (*Snippet, bool) {
	s, ok := m.snippets[id]
	return s, ok
}

// Snippets returns every live snippet ordered by id.
func (m *Manager) Snippets() []*Snippet {
	out := make([]*Snippet, 0, len(m.snippets))
	for _, s := range m.snippets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// SnippetForConnector returns the snippet owning connector id.
func (m *Manager) SnippetForConnector(id ConnectorID) (SnippetID, bool) {
	s, ok := m.connectors[id]
	return s, ok
}

// SnippetForParameter returns the snippet owning parameter id.
func (m *Manager) SnippetForParameter(id ParameterID) (SnippetID, bool) {
	s, ok := m.parameters[id]
	return s, ok
}

// FindConnector resolves a connector id to its snippet and connector record.
func (m *Manager) FindConnector(id ConnectorID) (*Snippet, Connector, error) {
	ep, err := m.resolve("connector", id)
	if err != nil {
		return nil, Connector{}, err
	}
	return ep.snippet, ep.connector, nil
}

// UpdateParameter sets the value of a parameter.
func (m *Manager) UpdateParameter(id ParameterID, value string) error {
	sid, ok := m.parameters[id]
	if !ok {
		return core.NotFound("parameter", core.ID(id))
	}
	s, ok := m.snippets[sid]
	if !ok {
		return m.invariant("update parameter", "parameter %s indexed under missing snippet %s", id, sid)
	}
	p, ok := s.FindParameter(id)
	if !ok {
		return m.invariant("update parameter", "parameter %s not carried by snippet %s", id, sid)
	}
	p.UpdateValue(value)

	m.logger.Debug().
		Uint32("snippet_id", uint32(sid)).
		Uint32("parameter_id", uint32(id)).
		Str("parameter", p.name).
		Msg("parameter updated")
	return nil
}

// Stats summarises the size of every structure.
func (m *Manager) Stats() Stats {
	return Stats{
		Snippets:   len(m.snippets),
		Connectors: len(m.connectors),
		Parameters: len(m.parameters),
		Pipelines:  len(m.pipelines),
		GraphNodes: m.graph.NodeCount(),
		GraphEdges: m.graph.EdgeCount(),
	}
}

// FanoutSize is the number of connectors that currently carry at least one
// pipeline.
func (m *Manager) FanoutSize() int {
	return len(m.fanout)
}

// EdgeWeight returns how many pipelines run from snippet a to snippet b.
func (m *Manager) EdgeWeight(a, b SnippetID) int {
	sa, ok := m.snippets[a]
	if !ok {
		return 0
	}
	sb, ok := m.snippets[b]
	if !ok {
		return 0
	}
	e, ok := m.graph.FindEdge(sa.node, sb.node)
	if !ok {
		return 0
	}
	w, _ := m.graph.EdgeWeight(e)
	return w
}

type endpoint struct {
	snippet   *Snippet
	connector Connector
}

// resolve maps a connector id to its owner. role names the endpoint in error
// messages ("from", "to").
func (m *Manager) resolve(role string, id ConnectorID) (endpoint, error) {
	sid, ok := m.connectors[id]
	if !ok {
		return endpoint{}, &core.NotFoundError{
			Entity: "connector",
			ID:     core.ID(id),
			Detail: role + " connector has no owning snippet",
		}
	}
	s, ok := m.snippets[sid]
	if !ok {
		return endpoint{}, &core.NotFoundError{
			Entity: "snippet",
			ID:     core.ID(sid),
			Detail: fmt.Sprintf("owner of %s connector %s", role, id),
		}
	}
	c, ok := s.FindConnector(id)
	if !ok {
		return endpoint{}, &core.NotFoundError{
			Entity: "connector",
			ID:     core.ID(id),
			Detail: fmt.Sprintf("%s connector is not part of snippet %s", role, sid),
		}
	}
	return endpoint{snippet: s, connector: c}, nil
}

func (m *Manager) invariant(op, format string, args ...interface{}) error {
	err := core.Invariant(op, format, args...)
	m.logger.Error().Err(err).Str("op", op).Msg("internal invariant violated")
	return err
}
