package snippets

import (
	"sort"

	"github.com/gammazero/toposort"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/topology"
)

// GraphEdge is one snippet-level edge. Weight is the number of pipelines that
// run between the two snippets.
type GraphEdge struct {
	From   SnippetID `json:"from"`
	To     SnippetID `json:"to"`
	Weight int       `json:"weight"`
}

// SnippetGraph is a read-only snapshot of the snippet-level graph keyed by
// snippet id. It does not change when the Manager does.
type SnippetGraph struct {
	nodes []SnippetID
	edges []GraphEdge
	succ  map[SnippetID][]SnippetID
	pred  map[SnippetID][]SnippetID
}

// SnippetGraph snapshots the topology. It panics with *core.InvariantError if
// a graph node has no owning snippet.
func (m *Manager) SnippetGraph() *SnippetGraph {
	const op = "snippet graph"

	owner := func(n topology.NodeIndex) SnippetID {
		id, ok := m.nodes[n]
		if !ok {
			panic(m.invariant(op, "graph node %d has no owning snippet", n))
		}
		return id
	}

	g := &SnippetGraph{
		succ: make(map[SnippetID][]SnippetID),
		pred: make(map[SnippetID][]SnippetID),
	}
	for _, n := range m.graph.Nodes() {
		g.nodes = append(g.nodes, owner(n))
	}
	for _, e := range m.graph.Edges() {
		from, to := owner(e.From), owner(e.To)

		g.edges = append(g.edges, GraphEdge{From: from, To: to, Weight: e.Weight})
		g.succ[from] = append(g.succ[from], to)
		g.pred[to] = append(g.pred[to], from)
	}

	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i] < g.nodes[j] })
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].From != g.edges[j].From {
			return g.edges[i].From < g.edges[j].From
		}
		return g.edges[i].To < g.edges[j].To
	})
	for _, adj := range []map[SnippetID][]SnippetID{g.succ, g.pred} {
		for k := range adj {
			ids := adj[k]
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		}
	}
	return g
}

// Nodes returns every snippet id in ascending order.
func (g *SnippetGraph) Nodes() []SnippetID { return append([]SnippetID(nil), g.nodes...) }

// Edges returns every edge ordered by (From, To).
func (g *SnippetGraph) Edges() []GraphEdge { return append([]GraphEdge(nil), g.edges...) }

func (g *SnippetGraph) NodeCount() int { return len(g.nodes) }
func (g *SnippetGraph) EdgeCount() int { return len(g.edges) }

func (g *SnippetGraph) Successors(id SnippetID) []SnippetID {
	return append([]SnippetID(nil), g.succ[id]...)
}

func (g *SnippetGraph) Predecessors(id SnippetID) []SnippetID {
	return append([]SnippetID(nil), g.pred[id]...)
}

// HasEdge reports whether an edge runs from a to b.
func (g *SnippetGraph) HasEdge(a, b SnippetID) bool {
	for _, s := range g.succ[a] {
		if s == b {
			return true
		}
	}
	return false
}

// Roots returns the snippets with no incoming edge.
func (g *SnippetGraph) Roots() []SnippetID {
	var out []SnippetID
	for _, n := range g.nodes {
		if len(g.pred[n]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// TopologicalOrder orders every snippet so each comes after its upstream
// snippets. Snippets with no edges follow, ascending.
func (g *SnippetGraph) TopologicalOrder() ([]SnippetID, error) {
	edges := make([]toposort.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, toposort.Edge{e.From, e.To})
	}
	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, &core.StructuralError{Op: "topological order", Reason: err.Error()}
	}

	out := make([]SnippetID, 0, len(g.nodes))
	seen := make(map[SnippetID]bool, len(g.nodes))
	for _, v := range sorted {
		id := v.(SnippetID)
		out = append(out, id)
		seen[id] = true
	}
	for _, n := range g.nodes {
		if !seen[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// IOPointMappings maps every (snippet, output port) that feeds a pipeline to
// the (snippet, input port) pairs it feeds, in pipeline creation order.
//
// It panics with *core.InvariantError if a pipeline refers to a connector
// whose owner cannot be found.
func (m *Manager) IOPointMappings() map[PortRef][]PortRef {
	const op = "io point mappings"

	out := make(map[PortRef][]PortRef)
	for _, p := range m.Pipelines() {
		from := m.portRef(op, p.id, p.from)
		to := m.portRef(op, p.id, p.to)
		out[from] = append(out[from], to)
	}
	return out
}

func (m *Manager) portRef(op string, pid PipelineID, c ConnectorID) PortRef {
	ep, err := m.resolve("pipeline", c)
	if err != nil {
		panic(m.invariant(op, "pipeline %s: %v", pid, err))
	}
	return PortRef{Snippet: ep.snippet.id, Port: ep.connector.name}
}
