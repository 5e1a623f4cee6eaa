package project_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/catalog"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/project"
)

const testCatalog = `
definitions:
  - name: source
    outputs: [{name: out}]
  - name: add
    inputs: [{name: a}, {name: b}]
    outputs: [{name: sum}]
    parameters: [{name: scale, kind: Number}]
  - name: sink
    inputs: [{name: in}]
`

const testProject = `
name: demo
catalog: catalog.yaml
snippets:
  - name: x
    definition: source
  - name: y
    definition: source
  - name: adder
    definition: add
    parameters:
      scale: "3"
  - name: printer
    definition: sink
pipelines:
  - from: x.out
    to: adder.a
  - from: y.out
    to: adder.b
  - from: adder.sum
    to: printer.in
`

func setup(t *testing.T) (*snippets.Manager, *catalog.Catalog) {
	t.Helper()
	gen := core.NewIDGenerator()
	c := catalog.New(gen)
	require.NoError(t, c.LoadYAML(strings.NewReader(testCatalog)))
	return snippets.NewManager(gen), c
}

func TestApply(t *testing.T) {
	m, defs := setup(t)
	f, err := project.Load(strings.NewReader(testProject))
	require.NoError(t, err)
	assert.Equal(t, "demo", f.Name)
	assert.Equal(t, "catalog.yaml", f.Catalog)

	applied, err := project.Apply(f, m, defs)
	require.NoError(t, err)
	assert.Len(t, applied.Snippets, 4)
	assert.Len(t, applied.Pipelines, 3)

	st := m.Stats()
	assert.Equal(t, 4, st.Snippets)
	assert.Equal(t, 3, st.Pipelines)
	assert.Equal(t, 3, st.GraphEdges)

	adder, _ := m.FindSnippet(applied.Snippets["adder"])
	scale, ok := adder.FindParameterByName("scale")
	require.True(t, ok)
	assert.Equal(t, "3", scale.Value())
}

func TestApplyRollsBack(t *testing.T) {
	tests := []struct {
		name    string
		project string
		want    string
	}{
		{"unknown definition", "snippets:\n  - {name: a, definition: nope}\n", "unknown definition"},
		{"duplicate label", "snippets:\n  - {name: a, definition: source}\n  - {name: a, definition: sink}\n", "duplicate snippet label"},
		{"unknown parameter", "snippets:\n  - {name: a, definition: add, parameters: {colour: red}}\n", "no parameter"},
		{"bad endpoint", "snippets:\n  - {name: a, definition: source}\npipelines:\n  - {from: a, to: a.out}\n", "expected label.port"},
		{"unknown port", "snippets:\n  - {name: a, definition: source}\n  - {name: b, definition: sink}\npipelines:\n  - {from: a.nope, to: b.in}\n", "no port"},
		{"same snippet", "snippets:\n  - {name: a, definition: add}\npipelines:\n  - {from: a.sum, to: a.a}\n", "rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, defs := setup(t)
			f, err := project.Load(strings.NewReader(tt.project))
			require.NoError(t, err)

			_, err = project.Apply(f, m, defs)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, snippets.Stats{}, m.Stats())
		})
	}
}

// meddlingDefinitions deletes every snippet in m on its second lookup and then
// reports the definition as unknown.
type meddlingDefinitions struct {
	*catalog.Catalog
	m     *snippets.Manager
	calls int
}

func (d *meddlingDefinitions) FindByName(name string) (snippets.Definition, bool) {
	d.calls++
	if d.calls == 2 {
		for _, s := range d.m.Snippets() {
			_ = d.m.DeleteSnippet(s.ID())
		}
		return snippets.Definition{}, false
	}
	return d.Catalog.FindByName(name)
}

func TestApplyReportsIncompleteRollback(t *testing.T) {
	m, c := setup(t)
	f, err := project.Load(strings.NewReader("snippets:\n  - {name: x, definition: source}\n  - {name: y, definition: source}\n"))
	require.NoError(t, err)

	_, err = project.Apply(f, m, &meddlingDefinitions{Catalog: c, m: m})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown definition")
	assert.Contains(t, err.Error(), "rollback incomplete: snippet x")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
	assert.Equal(t, snippets.Stats{}, m.Stats())
}

func TestApplyCycleIsStructural(t *testing.T) {
	m, defs := setup(t)
	f, err := project.Load(strings.NewReader(`
snippets:
  - {name: a, definition: add}
  - {name: b, definition: add}
pipelines:
  - {from: a.sum, to: b.a}
  - {from: b.sum, to: a.a}
`))
	require.NoError(t, err)

	_, err = project.Apply(f, m, defs)
	assert.True(t, errors.Is(err, core.ErrStructural))
	assert.Equal(t, 0, m.Stats().GraphNodes)
}

func TestSnapshotRoundTrip(t *testing.T) {
	m, defs := setup(t)
	f, err := project.Load(strings.NewReader(testProject))
	require.NoError(t, err)
	applied, err := project.Apply(f, m, defs)
	require.NoError(t, err)

	snap, err := project.Snapshot(m, "demo", applied.Labels())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, project.Save(&buf, snap))

	reloaded, err := project.Load(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.Pipelines, reloaded.Pipelines)

	m2, _ := setup(t)
	again, err := project.Apply(reloaded, m2, defs)
	require.NoError(t, err)
	assert.Equal(t, m.Stats(), m2.Stats())
	assert.Len(t, again.Pipelines, 3)
}

func TestSnapshotLabels(t *testing.T) {
	m, defs := setup(t)
	src, _ := defs.FindByName("source")
	first := m.NewSnippet(src)
	second := m.NewSnippet(src)

	snap, err := project.Snapshot(m, "unnamed", nil)
	require.NoError(t, err)
	require.Len(t, snap.Snippets, 2)
	assert.Equal(t, "source", snap.Snippets[0].Name)
	assert.Equal(t, "source_"+second.String(), snap.Snippets[1].Name)
	assert.NotEqual(t, first, second)
}

type definitionMap map[string]snippets.Definition

func (d definitionMap) FindByName(name string) (snippets.Definition, bool) {
	def, ok := d[name]
	return def, ok
}

func TestSnapshotDottedDefinitionName(t *testing.T) {
	defs := definitionMap{
		"io.read":  {Name: "io.read", Outputs: []snippets.Port{{Name: "out"}}},
		"io.write": {Name: "io.write", Inputs: []snippets.Port{{Name: "in"}}},
	}
	m := snippets.NewManager(core.NewIDGenerator())
	r := m.NewSnippet(defs["io.read"])
	w := m.NewSnippet(defs["io.write"])
	rs, _ := m.FindSnippet(r)
	ws, _ := m.FindSnippet(w)
	_, err := m.CreatePipeline(rs.ConnectorIDs()[0], ws.ConnectorIDs()[0])
	require.NoError(t, err)

	snap, err := project.Snapshot(m, "dotted", nil)
	require.NoError(t, err)
	assert.Equal(t, "io_read", snap.Snippets[0].Name)
	assert.Equal(t, "io.read", snap.Snippets[0].Definition)
	assert.Equal(t, project.PipelineEntry{From: "io_read.out", To: "io_write.in"}, snap.Pipelines[0])

	fresh := snippets.NewManager(core.NewIDGenerator())
	applied, err := project.Apply(snap, fresh, defs)
	require.NoError(t, err)
	assert.Len(t, applied.Pipelines, 1)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testProject), 0o644))

	f, err := project.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Snippets, 4)

	_, err = project.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
