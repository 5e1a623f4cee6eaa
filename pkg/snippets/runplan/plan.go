// Package runplan packages a snippet graph for an executor: the order to run
// snippets in, the values of their parameters and where every input reads
// from.
package runplan

import (
	"encoding/json"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
)

// Binding feeds one input port from an upstream output port.
type Binding struct {
	Input  string           `json:"input"`
	Source snippets.PortRef `json:"source"`
}

// Link is one entry of the port map.
type Link struct {
	From snippets.PortRef `json:"from"`
	To   snippets.PortRef `json:"to"`
}

// Step is one snippet to run.
type Step struct {
	Snippet    snippets.SnippetID    `json:"snippet"`
	Name       string                `json:"name"`
	Definition snippets.DefinitionID `json:"definition"`
	Parameters map[string]string     `json:"parameters,omitempty"`
	Inputs     []Binding             `json:"inputs,omitempty"`
	Outputs    []string              `json:"outputs,omitempty"`
}

// Plan is an immutable snapshot of a Manager prepared for execution.
type Plan struct {
	Graph   *snippets.SnippetGraph                  `json:"-"`
	PortMap map[snippets.PortRef][]snippets.PortRef `json:"-"`
	Order   []snippets.SnippetID                    `json:"order"`
	Steps   []Step                                  `json:"steps"`
	Links   []Link                                  `json:"links"`
	Unfed   []snippets.PortRef                      `json:"unfed,omitempty"`

	index map[snippets.SnippetID]int
}

// Build snapshots m. Input ports that no pipeline feeds are listed in Unfed;
// deciding whether that is acceptable is left to the caller.
func Build(m *snippets.Manager) (*Plan, error) {
	g := m.SnippetGraph()
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("build run plan: %w", err)
	}
	portMap := m.IOPointMappings()

	links := []Link{}
	for from, tos := range portMap {
		for _, to := range tos {
			links = append(links, Link{From: from, To: to})
		}
	}
	sort.Slice(links, func(i, j int) bool { return lessLink(links[i], links[j]) })

	feeds := make(map[snippets.SnippetID][]Binding)
	for _, l := range links {
		feeds[l.To.Snippet] = append(feeds[l.To.Snippet], Binding{Input: l.To.Port, Source: l.From})
	}

	p := &Plan{
		Graph:   g,
		PortMap: portMap,
		Order:   order,
		Steps:   make([]Step, 0, len(order)),
		Links:   links,
		index:   make(map[snippets.SnippetID]int, len(order)),
	}
	for _, id := range order {
		s, ok := m.FindSnippet(id)
		if !ok {
			return nil, fmt.Errorf("build run plan: snippet %s vanished", id)
		}

		step := Step{
			Snippet:    id,
			Name:       s.Name(),
			Definition: s.DefinitionID(),
			Inputs:     feeds[id],
		}
		sort.SliceStable(step.Inputs, func(i, j int) bool { return step.Inputs[i].Input < step.Inputs[j].Input })

		if params := s.Parameters(); len(params) > 0 {
			step.Parameters = make(map[string]string, len(params))
			for _, prm := range params {
				step.Parameters[prm.Name()] = prm.Value()
			}
		}

		fed := mapset.NewThreadUnsafeSet[string]()
		for _, b := range step.Inputs {
			fed.Add(b.Input)
		}
		for _, c := range s.Connectors() {
			switch {
			case !c.IsInput():
				step.Outputs = append(step.Outputs, c.Name())
			case !fed.Contains(c.Name()):
				p.Unfed = append(p.Unfed, snippets.PortRef{Snippet: id, Port: c.Name()})
			}
		}

		p.index[id] = len(p.Steps)
		p.Steps = append(p.Steps, step)
	}
	return p, nil
}

func lessLink(a, b Link) bool {
	if a.From.Snippet != b.From.Snippet {
		return a.From.Snippet < b.From.Snippet
	}
	if a.From.Port != b.From.Port {
		return a.From.Port < b.From.Port
	}
	if a.To.Snippet != b.To.Snippet {
		return a.To.Snippet < b.To.Snippet
	}
	return a.To.Port < b.To.Port
}

// Step returns the step for snippet id.
func (p *Plan) Step(id snippets.SnippetID) (Step, bool) {
	i, ok := p.index[id]
	if !ok {
		return Step{}, false
	}
	return p.Steps[i], true
}

// InputsFor returns the bindings of snippet id, ordered by input name.
func (p *Plan) InputsFor(id snippets.SnippetID) []Binding {
	s, _ := p.Step(id)
	return s.Inputs
}

// Ready returns, in plan order, the snippets that are not done and whose
// upstream snippets all are.
func (p *Plan) Ready(done mapset.Set[snippets.SnippetID]) []snippets.SnippetID {
	var out []snippets.SnippetID
	for _, id := range p.Order {
		if done.Contains(id) {
			continue
		}
		if done.Contains(p.Graph.Predecessors(id)...) {
			out = append(out, id)
		}
	}
	return out
}

// Complete reports whether every input port is fed.
func (p *Plan) Complete() bool { return len(p.Unfed) == 0 }

// Marshal renders p as indented JSON.
func Marshal(p *Plan) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
