// Package render draws a run plan as a Graphviz DOT or Mermaid diagram. One
// node is drawn per snippet and one edge per pipeline. Snippets with an unfed
// input are drawn dashed.
package render

import (
	"fmt"
	"io"
	"strconv"

	gographviz "github.com/awalterschulze/gographviz"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/runplan"
)

func nodeID(id snippets.SnippetID) string {
	return "s" + id.String()
}

func unfedSnippets(p *runplan.Plan) map[snippets.SnippetID]bool {
	out := make(map[snippets.SnippetID]bool, len(p.Unfed))
	for _, ref := range p.Unfed {
		out[ref.Snippet] = true
	}
	return out
}

// DOTGraph builds the gographviz graph for p.
func DOTGraph(p *runplan.Plan, name string) (*gographviz.Graph, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(strconv.Quote(name)); err != nil {
		return nil, err
	}
	if err := g.SetDir(true); err != nil {
		return nil, err
	}
	if err := g.AddAttr(g.Name, "rankdir", "LR"); err != nil {
		return nil, err
	}

	unfed := unfedSnippets(p)
	for _, step := range p.Steps {
		attrs := map[string]string{
			"label": strconv.Quote(fmt.Sprintf("%s (%s)", step.Name, step.Snippet)),
			"shape": "box",
		}
		if unfed[step.Snippet] {
			attrs["style"] = "dashed"
		}
		if err := g.AddNode(g.Name, nodeID(step.Snippet), attrs); err != nil {
			return nil, fmt.Errorf("dot node %s: %w", step.Snippet, err)
		}
	}
	for _, l := range p.Links {
		attrs := map[string]string{
			"label": strconv.Quote(l.From.Port + " -> " + l.To.Port),
		}
		if err := g.AddEdge(nodeID(l.From.Snippet), nodeID(l.To.Snippet), true, attrs); err != nil {
			return nil, fmt.Errorf("dot edge %s -> %s: %w", l.From, l.To, err)
		}
	}
	return g, nil
}

// DOT writes p in Graphviz DOT syntax.
func DOT(w io.Writer, p *runplan.Plan, name string) error {
	g, err := DOTGraph(p, name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, g.String())
	return err
}

// Mermaid writes p as a left-to-right Mermaid flowchart.
func Mermaid(w io.Writer, p *runplan.Plan) error {
	if _, err := fmt.Fprintln(w, "graph LR"); err != nil {
		return err
	}
	for _, step := range p.Steps {
		fmt.Fprintf(w, "    %s[%q]\n", nodeID(step.Snippet), step.Name)
	}
	for _, l := range p.Links {
		fmt.Fprintf(w, "    %s -->|%q| %s\n", nodeID(l.From.Snippet), l.From.Port+" -> "+l.To.Port, nodeID(l.To.Snippet))
	}
	unfed := unfedSnippets(p)
	for _, step := range p.Steps {
		if unfed[step.Snippet] {
			fmt.Fprintf(w, "    style %s stroke-dasharray: 5 5\n", nodeID(step.Snippet))
		}
	}
	return nil
}
