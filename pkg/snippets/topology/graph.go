// Package topology keeps a snippet-granularity mirror of the pipeline graph.
//
// Nodes and edges are addressed by dense indices that are never reused after
// removal, so an index held by a snippet or pipeline record can never silently
// start pointing at a different node. Each directed node pair has at most one
// edge; its weight counts the pipelines routed along it.
//
// Storage is a directed, weighted lvlath graph without multi-edges. Vertex and
// edge ids in that graph are derived from the indices handed out here.
package topology

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/gammazero/toposort"
	"github.com/lvlath/go/core"
)

// NodeIndex addresses a node in a Graph.
type NodeIndex uint32

// EdgeIndex addresses an edge in a Graph.
type EdgeIndex uint32

// Edge is a read-only view of one weighted edge.
type Edge struct {
	Index  EdgeIndex
	From   NodeIndex
	To     NodeIndex
	Weight int
}

// Graph is a directed graph with weighted edges. It is not safe for
// concurrent use; the owning engine serialises access.
type Graph struct {
	store    *core.Graph
	nextNode NodeIndex
	nextEdge EdgeIndex
}

// New creates an empty graph.
func New() *Graph {
	store, err := core.NewGraph(core.WithDirected(true), core.WithWeighted(), core.WithLoops())
	if err != nil {
		panic(fmt.Sprintf("topology: graph options rejected: %v", err))
	}
	return &Graph{store: store}
}

func nodeKey(n NodeIndex) string { return "n" + strconv.FormatUint(uint64(n), 10) }

func edgeKey(e EdgeIndex) string { return "p" + strconv.FormatUint(uint64(e), 10) }

func parseKey(key string) uint32 {
	v, err := strconv.ParseUint(key[1:], 10, 32)
	if err != nil {
		panic(fmt.Sprintf("topology: malformed key %q", key))
	}
	return uint32(v)
}

func view(e *core.Edge) Edge {
	return Edge{
		Index:  EdgeIndex(parseKey(e.ID)),
		From:   NodeIndex(parseKey(e.From)),
		To:     NodeIndex(parseKey(e.To)),
		Weight: int(e.Weight),
	}
}

// AddNode inserts an isolated node.
func (g *Graph) AddNode() NodeIndex {
	idx := g.nextNode
	g.nextNode++
	if err := g.store.AddVertex(nodeKey(idx)); err != nil {
		panic(fmt.Sprintf("topology: add node %d: %v", idx, err))
	}
	return idx
}

// ContainsNode reports whether n is live.
func (g *Graph) ContainsNode(n NodeIndex) bool {
	return g.store.HasVertex(nodeKey(n))
}

// RemoveNode deletes n together with every edge touching it and returns the
// number of edges dropped. ok is false when n is not live.
func (g *Graph) RemoveNode(n NodeIndex) (dropped int, ok bool) {
	key := nodeKey(n)
	if !g.store.HasVertex(key) {
		return 0, false
	}
	touching, err := g.store.FilterEdges(func(e core.Edge) bool {
		return e.From == key || e.To == key
	})
	if err != nil {
		return 0, false
	}
	if err := g.store.RemoveVertex(key); err != nil {
		return 0, false
	}
	return len(touching), true
}

// AddEdge inserts a new edge from -> to with the given weight. Only one edge
// may exist per directed pair, and the weight must be positive.
func (g *Graph) AddEdge(from, to NodeIndex, weight int) (EdgeIndex, error) {
	if !g.ContainsNode(from) {
		return 0, fmt.Errorf("source node %d does not exist", from)
	}
	if !g.ContainsNode(to) {
		return 0, fmt.Errorf("target node %d does not exist", to)
	}
	if weight <= 0 {
		return 0, fmt.Errorf("edge weight must be positive, got %d", weight)
	}
	if existing, exists := g.FindEdge(from, to); exists {
		return 0, fmt.Errorf("edge %d already connects node %d to node %d", existing, from, to)
	}

	idx := g.nextEdge
	if _, err := g.store.AddEdge(nodeKey(from), nodeKey(to), float64(weight), core.WithID(edgeKey(idx))); err != nil {
		return 0, fmt.Errorf("add edge %d -> %d: %w", from, to, err)
	}
	g.nextEdge++
	return idx, nil
}

// FindEdge returns the edge from -> to, if any.
func (g *Graph) FindEdge(from, to NodeIndex) (EdgeIndex, bool) {
	out, err := g.store.Neighbors(nodeKey(from))
	if err != nil {
		return 0, false
	}
	target := nodeKey(to)
	for _, e := range out {
		if e.To == target {
			return EdgeIndex(parseKey(e.ID)), true
		}
	}
	return 0, false
}

func (g *Graph) edge(e EdgeIndex) (*core.Edge, bool) {
	ed, err := g.store.GetEdge(edgeKey(e))
	if err != nil {
		return nil, false
	}
	return ed, true
}

// EdgeWeight returns the weight of e.
func (g *Graph) EdgeWeight(e EdgeIndex) (int, bool) {
	ed, ok := g.edge(e)
	if !ok {
		return 0, false
	}
	return int(ed.Weight), true
}

// EdgeEndpoints returns the nodes e connects.
func (g *Graph) EdgeEndpoints(e EdgeIndex) (from, to NodeIndex, ok bool) {
	ed, ok := g.edge(e)
	if !ok {
		return 0, 0, false
	}
	v := view(ed)
	return v.From, v.To, true
}

// reweight replaces e with an edge of the same id and endpoints carrying
// weight. Published lvlath edges are immutable, so this is remove then add.
func (g *Graph) reweight(ed *core.Edge, weight int) error {
	from, to, id := ed.From, ed.To, ed.ID
	if err := g.store.RemoveEdge(id); err != nil {
		return err
	}
	_, err := g.store.AddEdge(from, to, float64(weight), core.WithID(id))
	return err
}

// IncrementEdge adds one to the weight of e and returns the new weight.
func (g *Graph) IncrementEdge(e EdgeIndex) (int, error) {
	ed, ok := g.edge(e)
	if !ok {
		return 0, fmt.Errorf("edge %d does not exist", e)
	}
	weight := int(ed.Weight) + 1
	if err := g.reweight(ed, weight); err != nil {
		return 0, fmt.Errorf("increment edge %d: %w", e, err)
	}
	return weight, nil
}

// DecrementEdge subtracts one from the weight of e. An edge whose weight
// reaches zero is removed; removed reports whether that happened.
func (g *Graph) DecrementEdge(e EdgeIndex) (remaining int, removed bool, err error) {
	ed, ok := g.edge(e)
	if !ok {
		return 0, false, fmt.Errorf("edge %d does not exist", e)
	}
	if weight := int(ed.Weight); weight > 1 {
		if err := g.reweight(ed, weight-1); err != nil {
			return 0, false, fmt.Errorf("decrement edge %d: %w", e, err)
		}
		return weight - 1, false, nil
	}
	if err := g.store.RemoveEdge(ed.ID); err != nil {
		return 0, false, fmt.Errorf("decrement edge %d: %w", e, err)
	}
	return 0, true, nil
}

// RemoveEdge deletes e regardless of its weight.
func (g *Graph) RemoveEdge(e EdgeIndex) bool {
	return g.store.RemoveEdge(edgeKey(e)) == nil
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return g.store.VertexCount() }

// EdgeCount returns the number of live edges.
func (g *Graph) EdgeCount() int { return g.store.EdgeCount() }

func sortNodes(out []NodeIndex) []NodeIndex {
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Nodes returns the live node indices in ascending order.
func (g *Graph) Nodes() []NodeIndex {
	keys := g.store.Vertices()
	out := make([]NodeIndex, 0, len(keys))
	for _, key := range keys {
		out = append(out, NodeIndex(parseKey(key)))
	}
	return sortNodes(out)
}

// Edges returns the live edges ordered by index.
func (g *Graph) Edges() []Edge {
	stored := g.store.Edges()
	out := make([]Edge, 0, len(stored))
	for _, e := range stored {
		out = append(out, view(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Successors returns the targets of the edges leaving n, ascending.
func (g *Graph) Successors(n NodeIndex) []NodeIndex {
	edges, err := g.store.Neighbors(nodeKey(n))
	if err != nil {
		return nil
	}
	out := make([]NodeIndex, 0, len(edges))
	for _, e := range edges {
		out = append(out, NodeIndex(parseKey(e.To)))
	}
	return sortNodes(out)
}

// Predecessors returns the sources of the edges entering n, ascending.
func (g *Graph) Predecessors(n NodeIndex) []NodeIndex {
	key := nodeKey(n)
	if !g.store.HasVertex(key) {
		return nil
	}
	edges, err := g.store.FilterEdges(func(e core.Edge) bool { return e.To == key })
	if err != nil {
		return nil
	}
	out := make([]NodeIndex, 0, len(edges))
	for _, e := range edges {
		out = append(out, NodeIndex(parseKey(e.From)))
	}
	return sortNodes(out)
}

// IsCyclic reports whether the graph contains a directed cycle.
func (g *Graph) IsCyclic() bool {
	if g.store.EdgeCount() == 0 {
		return false
	}
	_, err := toposort.Toposort(g.sortEdges())
	return err != nil
}

// Order returns every live node in a topological order. Nodes without edges
// follow the sorted ones in ascending index order.
func (g *Graph) Order() ([]NodeIndex, error) {
	nodes := g.Nodes()
	order := make([]NodeIndex, 0, len(nodes))
	placed := make(map[NodeIndex]bool, len(nodes))

	if g.store.EdgeCount() > 0 {
		sorted, err := toposort.Toposort(g.sortEdges())
		if err != nil {
			return nil, fmt.Errorf("graph contains a cycle: %w", err)
		}
		for _, v := range sorted {
			n, ok := v.(NodeIndex)
			if !ok {
				return nil, fmt.Errorf("unexpected type in topological sort result: %T", v)
			}
			order = append(order, n)
			placed[n] = true
		}
	}

	for _, n := range nodes {
		if !placed[n] {
			order = append(order, n)
		}
	}
	return order, nil
}

// sortEdges converts the edge set into toposort input. Element 0 of each edge
// comes before element 1.
func (g *Graph) sortEdges() []toposort.Edge {
	edges := g.Edges()
	out := make([]toposort.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, toposort.Edge{e.From, e.To})
	}
	return out
}
