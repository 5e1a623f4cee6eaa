// Package project reads and writes snippet graphs as YAML project files.
//
// Snippet instances are referred to by label and ports by "label.port":
//
//	name: demo
//	catalog: catalog.yaml
//	snippets:
//	  - name: left
//	    definition: add
//	    parameters: {scale: "2"}
//	  - name: right
//	    definition: subtract
//	pipelines:
//	  - from: left.sum
//	    to: right.a
package project

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
)

// File is the YAML schema of a project.
type File struct {
	Name      string          `yaml:"name"`
	Catalog   string          `yaml:"catalog,omitempty"`
	Snippets  []SnippetEntry  `yaml:"snippets"`
	Pipelines []PipelineEntry `yaml:"pipelines,omitempty"`
}

type SnippetEntry struct {
	Name       string            `yaml:"name"`
	Definition string            `yaml:"definition"`
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

type PipelineEntry struct {
	From string `yaml:"from"` // label.output
	To   string `yaml:"to"`   // label.input
}

// Definitions resolves definition names used in a project.
type Definitions interface {
	FindByName(name string) (snippets.Definition, bool)
}

// Load decodes a project from r.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode project: %w", err)
	}
	return &f, nil
}

// LoadFile reads a project from path.
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Save encodes f to w.
func Save(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return enc.Close()
}

// Applied records what Apply created.
type Applied struct {
	Snippets  map[string]snippets.SnippetID
	Pipelines []snippets.PipelineID
}

// Labels inverts Snippets, for use with Snapshot.
func (a *Applied) Labels() map[snippets.SnippetID]string {
	out := make(map[snippets.SnippetID]string, len(a.Snippets))
	for label, id := range a.Snippets {
		out[id] = label
	}
	return out
}

// Apply instantiates f into m. Pipelines go through CreatePipeline, so the
// same structural rules apply as for interactive edits. If any step fails,
// everything Apply created is removed again and m is left as it was. Anything
// the rollback could not remove is joined to the returned error.
func Apply(f *File, m *snippets.Manager, defs Definitions) (*Applied, error) {
	a := &Applied{Snippets: make(map[string]snippets.SnippetID, len(f.Snippets))}
	if err := apply(f, m, defs, a); err != nil {
		if rerr := rollback(m, a); rerr != nil {
			return nil, errors.Join(err, fmt.Errorf("rollback incomplete: %w", rerr))
		}
		return nil, err
	}
	return a, nil
}

func apply(f *File, m *snippets.Manager, defs Definitions, a *Applied) error {
	for _, entry := range f.Snippets {
		if entry.Name == "" {
			return fmt.Errorf("snippet label is required")
		}
		if strings.Contains(entry.Name, ".") {
			return fmt.Errorf("snippet label %q must not contain '.'", entry.Name)
		}
		if _, dup := a.Snippets[entry.Name]; dup {
			return fmt.Errorf("duplicate snippet label: %s", entry.Name)
		}
		def, ok := defs.FindByName(entry.Definition)
		if !ok {
			return fmt.Errorf("snippet %s: unknown definition %q", entry.Name, entry.Definition)
		}

		id := m.NewSnippet(def)
		a.Snippets[entry.Name] = id

		s, _ := m.FindSnippet(id)
		for name, value := range entry.Parameters {
			p, ok := s.FindParameterByName(name)
			if !ok {
				return fmt.Errorf("snippet %s: definition %s has no parameter %q", entry.Name, def.Name, name)
			}
			if err := m.UpdateParameter(p.ID(), value); err != nil {
				return fmt.Errorf("snippet %s: %w", entry.Name, err)
			}
		}
	}

	for _, pe := range f.Pipelines {
		from, err := endpoint(m, a, pe.From, snippets.Output)
		if err != nil {
			return fmt.Errorf("pipeline %s -> %s: %w", pe.From, pe.To, err)
		}
		to, err := endpoint(m, a, pe.To, snippets.Input)
		if err != nil {
			return fmt.Errorf("pipeline %s -> %s: %w", pe.From, pe.To, err)
		}
		pid, err := m.CreatePipeline(from, to)
		if err != nil {
			return fmt.Errorf("pipeline %s -> %s: %w", pe.From, pe.To, err)
		}
		a.Pipelines = append(a.Pipelines, pid)
	}
	return nil
}

func endpoint(m *snippets.Manager, a *Applied, ref string, dir snippets.Direction) (snippets.ConnectorID, error) {
	idx := strings.LastIndex(ref, ".")
	if idx <= 0 || idx >= len(ref)-1 {
		return 0, fmt.Errorf("invalid endpoint %q; expected label.port", ref)
	}
	label, port := ref[:idx], ref[idx+1:]

	id, ok := a.Snippets[label]
	if !ok {
		return 0, fmt.Errorf("unknown snippet label %q", label)
	}
	s, _ := m.FindSnippet(id)
	if c, ok := s.FindConnectorByName(port, dir); ok {
		return c.ID(), nil
	}
	// Same-direction pipelines are storable, so accept the other side too.
	other := snippets.Input
	if dir == snippets.Input {
		other = snippets.Output
	}
	if c, ok := s.FindConnectorByName(port, other); ok {
		return c.ID(), nil
	}
	return 0, fmt.Errorf("snippet %s has no port %q", label, port)
}

// rollback removes what apply created, newest pipeline first, and reports
// everything it could not remove.
func rollback(m *snippets.Manager, a *Applied) error {
	var errs []error
	for i := len(a.Pipelines) - 1; i >= 0; i-- {
		if err := m.DeletePipeline(a.Pipelines[i]); err != nil {
			errs = append(errs, err)
		}
	}

	labels := make([]string, 0, len(a.Snippets))
	for label := range a.Snippets {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		if err := m.DeleteSnippet(a.Snippets[label]); err != nil {
			errs = append(errs, fmt.Errorf("snippet %s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot captures m as a project file. labels names snippet instances;
// snippets without a label are named after their definition, with '.'
// replaced by '_' and suffixed with their id when that name is taken.
func Snapshot(m *snippets.Manager, name string, labels map[snippets.SnippetID]string) (*File, error) {
	f := &File{Name: name}

	used := make(map[string]bool)
	for _, l := range labels {
		used[l] = true
	}
	names := make(map[snippets.SnippetID]string)
	for _, s := range m.Snippets() {
		label, ok := labels[s.ID()]
		if !ok {
			base := strings.ReplaceAll(s.Name(), ".", "_")
			label = base
			if used[label] {
				label = fmt.Sprintf("%s_%s", base, s.ID())
			}
			used[label] = true
		}
		names[s.ID()] = label

		entry := SnippetEntry{Name: label, Definition: s.Name()}
		if params := s.Parameters(); len(params) > 0 {
			entry.Parameters = make(map[string]string, len(params))
			for _, p := range params {
				entry.Parameters[p.Name()] = p.Value()
			}
		}
		f.Snippets = append(f.Snippets, entry)
	}

	for _, p := range m.Pipelines() {
		fromSnippet, from, err := m.FindConnector(p.From())
		if err != nil {
			return nil, fmt.Errorf("snapshot pipeline %s: %w", p.ID(), err)
		}
		toSnippet, to, err := m.FindConnector(p.To())
		if err != nil {
			return nil, fmt.Errorf("snapshot pipeline %s: %w", p.ID(), err)
		}
		f.Pipelines = append(f.Pipelines, PipelineEntry{
			From: names[fromSnippet.ID()] + "." + from.Name(),
			To:   names[toSnippet.ID()] + "." + to.Name(),
		})
	}
	return f, nil
}
