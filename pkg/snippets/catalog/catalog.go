// Package catalog is an in-memory source of snippet definitions, loaded from
// YAML documents of the form:
//
//	definitions:
//	  - name: add
//	    path: main/math/add
//	    inputs: [{name: a}, {name: b}]
//	    outputs: [{name: sum, content_type: json}]
//	    parameters: [{name: scale, kind: Number}]
package catalog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
)

// Document is the YAML schema of a catalog file.
type Document struct {
	Definitions []Spec `yaml:"definitions"`
}

// Spec declares one definition.
type Spec struct {
	Name       string      `yaml:"name"`
	Path       string      `yaml:"path"`
	Inputs     []PortSpec  `yaml:"inputs"`
	Outputs    []PortSpec  `yaml:"outputs"`
	Parameters []ParamSpec `yaml:"parameters"`
}

type PortSpec struct {
	Name        string `yaml:"name"`
	ContentType string `yaml:"content_type"`
}

type ParamSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Catalog holds definitions keyed by id and by name.
type Catalog struct {
	ids    *core.IDGenerator
	byID   map[snippets.DefinitionID]snippets.Definition
	byName map[string]snippets.DefinitionID
}

// New creates an empty catalog. Definition and port ids are drawn from gen.
func New(gen *core.IDGenerator) *Catalog {
	if gen == nil {
		gen = core.NewIDGenerator()
	}
	return &Catalog{
		ids:    gen,
		byID:   make(map[snippets.DefinitionID]snippets.Definition),
		byName: make(map[string]snippets.DefinitionID),
	}
}

// Add registers spec. Names must be unique within the catalog, and port names
// unique within their direction. Neither may contain '.', which separates
// label and port in project files.
func (c *Catalog) Add(spec Spec) (snippets.Definition, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return snippets.Definition{}, fmt.Errorf("definition name is required")
	}
	if strings.Contains(name, ".") {
		return snippets.Definition{}, fmt.Errorf("definition name %q must not contain '.'", name)
	}
	if _, exists := c.byName[name]; exists {
		return snippets.Definition{}, fmt.Errorf("duplicate definition name: %s", name)
	}

	outputs, err := c.ports(name, "output", spec.Outputs)
	if err != nil {
		return snippets.Definition{}, err
	}
	inputs, err := c.ports(name, "input", spec.Inputs)
	if err != nil {
		return snippets.Definition{}, err
	}

	params := make([]snippets.ParameterSpec, 0, len(spec.Parameters))
	seen := make(map[string]bool, len(spec.Parameters))
	for _, p := range spec.Parameters {
		if p.Name == "" {
			return snippets.Definition{}, fmt.Errorf("definition %s: parameter name is required", name)
		}
		if seen[p.Name] {
			return snippets.Definition{}, fmt.Errorf("definition %s: duplicate parameter %s", name, p.Name)
		}
		seen[p.Name] = true
		kind, err := snippets.ParseParameterKind(p.Kind)
		if err != nil {
			return snippets.Definition{}, fmt.Errorf("definition %s parameter %s: %w", name, p.Name, err)
		}
		params = append(params, snippets.ParameterSpec{Name: p.Name, Kind: kind})
	}

	def := snippets.Definition{
		ID:         snippets.DefinitionID(c.ids.Next()),
		Name:       name,
		Path:       spec.Path,
		Outputs:    outputs,
		Inputs:     inputs,
		Parameters: params,
	}
	c.byID[def.ID] = def
	c.byName[name] = def.ID
	return def, nil
}

func (c *Catalog) ports(def, dir string, specs []PortSpec) ([]snippets.Port, error) {
	out := make([]snippets.Port, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for _, ps := range specs {
		if ps.Name == "" {
			return nil, fmt.Errorf("definition %s: %s name is required", def, dir)
		}
		if strings.Contains(ps.Name, ".") {
			return nil, fmt.Errorf("definition %s: %s name %q must not contain '.'", def, dir, ps.Name)
		}
		if seen[ps.Name] {
			return nil, fmt.Errorf("definition %s: duplicate %s %s", def, dir, ps.Name)
		}
		seen[ps.Name] = true
		ct, err := snippets.ParseContentType(ps.ContentType)
		if err != nil {
			return nil, fmt.Errorf("definition %s %s %s: %w", def, dir, ps.Name, err)
		}
		out = append(out, snippets.Port{
			ID:          snippets.PortID(c.ids.Next()),
			Name:        ps.Name,
			ContentType: ct,
		})
	}
	return out, nil
}

// LoadYAML decodes a Document from r and adds every definition in it. It stops
// at the first invalid definition; definitions added before it are kept.
func (c *Catalog) LoadYAML(r io.Reader) error {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode catalog: %w", err)
	}
	for _, spec := range doc.Definitions {
		if _, err := c.Add(spec); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a catalog document from path.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := c.LoadYAML(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Find returns the definition with the given id.
func (c *Catalog) Find(id snippets.DefinitionID) (snippets.Definition, bool) {
	def, ok := c.byID[id]
	return def, ok
}

// FindByName returns the definition registered under name.
func (c *Catalog) FindByName(name string) (snippets.Definition, bool) {
	id, ok := c.byName[name]
	if !ok {
		return snippets.Definition{}, false
	}
	return c.byID[id], true
}

// Definitions returns every definition ordered by name.
func (c *Catalog) Definitions() []snippets.Definition {
	out := make([]snippets.Definition, 0, len(c.byID))
	for _, def := range c.byID {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) Len() int { return len(c.byID) }

// Reload would rescan the definition source from scratch.
func (c *Catalog) Reload() error {
	return &core.UnsupportedError{Feature: "catalog reload"}
}
