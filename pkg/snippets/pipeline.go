package snippets

import (
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/topology"
)

// CreatePipeline joins two connectors and returns the new pipeline id.
//
// Endpoints are normalised so the pipeline runs output to input: when from is
// an input and to is an output they are swapped. The call fails with
// core.ErrNotFound if either connector is unknown, and with core.ErrStructural
// if both connectors belong to the same snippet, if the pair is already joined
// (in either order), or if the pipeline would close a cycle between snippets.
// On any failure nothing is changed.
//
// CreatePipeline does not apply the one-pipeline-per-connector rule that
// ValidatePipeline reports; an output may feed several inputs.
func (m *Manager) CreatePipeline(from, to ConnectorID) (PipelineID, error) {
	const op = "create pipeline"

	src, err := m.resolve("from", from)
	if err != nil {
		return 0, err
	}
	dst, err := m.resolve("to", to)
	if err != nil {
		return 0, err
	}
	if src.connector.IsInput() && !dst.connector.IsInput() {
		src, dst = dst, src
	}

	if src.snippet.id == dst.snippet.id {
		return 0, &core.StructuralError{
			Op:     op,
			Reason: fmt.Sprintf("connectors %s and %s both belong to snippet %s", src.connector.id, dst.connector.id, src.snippet.id),
		}
	}
	if existing, ok := m.joinedBy(src.connector.id, dst.connector.id); ok {
		return 0, &core.StructuralError{
			Op:     op,
			Reason: fmt.Sprintf("connectors %s and %s are already joined by pipeline %s", src.connector.id, dst.connector.id, existing),
		}
	}

	edge, exists := m.graph.FindEdge(src.snippet.node, dst.snippet.node)
	if !exists {
		cyclic, err := m.wouldCycle(op, src.snippet.node, dst.snippet.node)
		if err != nil {
			return 0, err
		}
		if cyclic {
			return 0, &core.StructuralError{
				Op:     op,
				Reason: fmt.Sprintf("snippet %s to snippet %s would create a cycle", src.snippet.id, dst.snippet.id),
			}
		}
	}

	id := PipelineID(m.ids.Next())
	for _, c := range []ConnectorID{src.connector.id, dst.connector.id} {
		if set, ok := m.fanout[c]; ok && set.Contains(id) {
			return 0, m.invariant(op, "fresh pipeline %s already attached to connector %s", id, c)
		}
	}
	if _, ok := m.pipelines[id]; ok {
		return 0, m.invariant(op, "fresh pipeline %s already registered", id)
	}

	if exists {
		if _, err := m.graph.IncrementEdge(edge); err != nil {
			return 0, m.invariant(op, "%v", err)
		}
	} else {
		edge, err = m.graph.AddEdge(src.snippet.node, dst.snippet.node, 1)
		if err != nil {
			return 0, m.invariant(op, "%v", err)
		}
	}

	m.pipelines[id] = &Pipeline{
		id:   id,
		edge: edge,
		from: src.connector.id,
		to:   dst.connector.id,
	}
	m.attach(src.connector.id, id)
	m.attach(dst.connector.id, id)

	weight, _ := m.graph.EdgeWeight(edge)
	m.logger.Debug().
		Uint32("pipeline_id", uint32(id)).
		Uint32("from_connector", uint32(src.connector.id)).
		Uint32("to_connector", uint32(dst.connector.id)).
		Uint32("from_snippet", uint32(src.snippet.id)).
		Uint32("to_snippet", uint32(dst.snippet.id)).
		Int("edge_weight", weight).
		Msg("pipeline created")

	m.notify(EventPipelineCreated, core.ID(id), false)
	return id, nil
}

// DeletePipeline removes a pipeline and releases its graph edge weight. Every
// cross-reference is checked before anything is changed; a disagreement is
// reported as core.ErrInvariant and leaves the engine untouched.
func (m *Manager) DeletePipeline(id PipelineID) error {
	const op = "delete pipeline"

	p, ok := m.pipelines[id]
	if !ok {
		return core.NotFound("pipeline", core.ID(id))
	}
	if _, ok := m.graph.EdgeWeight(p.edge); !ok {
		return m.invariant(op, "graph edge %d of pipeline %s missing", p.edge, id)
	}
	for _, c := range []ConnectorID{p.from, p.to} {
		set, ok := m.fanout[c]
		if !ok || !set.Contains(id) {
			return m.invariant(op, "pipeline %s missing from fan-out of connector %s", id, c)
		}
	}

	remaining, removed, err := m.graph.DecrementEdge(p.edge)
	if err != nil {
		return m.invariant(op, "%v", err)
	}
	m.detach(p.from, id)
	m.detach(p.to, id)
	delete(m.pipelines, id)

	m.logger.Debug().
		Uint32("pipeline_id", uint32(id)).
		Int("edge_weight", remaining).
		Bool("edge_removed", removed).
		Msg("pipeline deleted")

	m.notify(EventPipelineDeleted, core.ID(id), false)
	return nil
}

// FindPipeline returns the pipeline with the given id.
func (m *Manager) FindPipeline(id PipelineID) (Pipeline, bool) {
	p, ok := m.pipelines[id]
	if !ok {
		return Pipeline{}, false
	}
	return *p, true
}

// Pipelines returns every pipeline ordered by id, which is creation order.
func (m *Manager) Pipelines() []Pipeline {
	out := make([]Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// PipelinesForConnector returns the ids of the pipelines attached to c in
// ascending order. Unknown or unconnected connectors yield an empty slice.
func (m *Manager) PipelinesForConnector(c ConnectorID) []PipelineID {
	set, ok := m.fanout[c]
	if !ok {
		return []PipelineID{}
	}
	out := set.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ConnectorCapacityFull reports whether c already carries a pipeline. The
// capacity of every connector is one.
func (m *Manager) ConnectorCapacityFull(c ConnectorID) bool {
	set, ok := m.fanout[c]
	return ok && set.Cardinality() > 0
}

func (m *Manager) attach(c ConnectorID, p PipelineID) {
	set, ok := m.fanout[c]
	if !ok {
		set = mapset.NewThreadUnsafeSet[PipelineID]()
		m.fanout[c] = set
	}
	set.Add(p)
}

// detach drops p from c's fan-out and removes the entry once it is empty.
func (m *Manager) detach(c ConnectorID, p PipelineID) {
	set, ok := m.fanout[c]
	if !ok {
		return
	}
	set.Remove(p)
	if set.Cardinality() == 0 {
		delete(m.fanout, c)
	}
}

// joinedBy finds a pipeline between a and b in either direction.
func (m *Manager) joinedBy(a, b ConnectorID) (PipelineID, bool) {
	set, ok := m.fanout[a]
	if !ok {
		return 0, false
	}
	for _, pid := range set.ToSlice() {
		if p, ok := m.pipelines[pid]; ok && p.Other(a) == b {
			return pid, true
		}
	}
	return 0, false
}

// wouldCycle adds a trial edge, asks the graph for a cycle and removes the
// trial edge again.
func (m *Manager) wouldCycle(op string, from, to topology.NodeIndex) (bool, error) {
	trial, err := m.graph.AddEdge(from, to, 1)
	if err != nil {
		return false, m.invariant(op, "trial edge: %v", err)
	}
	cyclic := m.graph.IsCyclic()
	if !m.graph.RemoveEdge(trial) {
		return false, m.invariant(op, "trial edge %d vanished", trial)
	}
	return cyclic, nil
}
