package snippets_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
)

// definition builds a definition with the named ports. Port ids are not
// relevant to the engine, so they are left unassigned.
func definition(name string, outputs, inputs []string, params ...snippets.ParameterSpec) snippets.Definition {
	def := snippets.Definition{Name: name, Parameters: params}
	for _, o := range outputs {
		def.Outputs = append(def.Outputs, snippets.Port{Name: o})
	}
	for _, i := range inputs {
		def.Inputs = append(def.Inputs, snippets.Port{Name: i})
	}
	return def
}

func output(t *testing.T, m *snippets.Manager, s snippets.SnippetID, name string) snippets.ConnectorID {
	t.Helper()
	sn, ok := m.FindSnippet(s)
	require.True(t, ok, "snippet %s", s)
	c, ok := sn.FindConnectorByName(name, snippets.Output)
	require.True(t, ok, "output %q on snippet %s", name, s)
	return c.ID()
}

func input(t *testing.T, m *snippets.Manager, s snippets.SnippetID, name string) snippets.ConnectorID {
	t.Helper()
	sn, ok := m.FindSnippet(s)
	require.True(t, ok, "snippet %s", s)
	c, ok := sn.FindConnectorByName(name, snippets.Input)
	require.True(t, ok, "input %q on snippet %s", name, s)
	return c.ID()
}

func TestNewSnippet(t *testing.T) {
	m := snippets.NewManager(core.NewIDGenerator())
	def := definition("three", []string{"output"}, []string{"input1", "input2"},
		snippets.ParameterSpec{Name: "count", Kind: snippets.Number},
		snippets.ParameterSpec{Name: "enabled", Kind: snippets.Boolean},
	)

	id := m.NewSnippet(def)
	s, ok := m.FindSnippet(id)
	require.True(t, ok)

	assert.Equal(t, "three", s.Name())
	assert.Len(t, s.Connectors(), def.PortCount())
	assert.Equal(t, 1, m.Stats().GraphNodes)
	assert.Equal(t, 0, m.Stats().GraphEdges)

	t.Run("connectors follow outputs then inputs", func(t *testing.T) {
		conns := s.Connectors()
		require.Len(t, conns, 3)
		assert.Equal(t, "output", conns[0].Name())
		assert.Equal(t, snippets.Output, conns[0].Direction())
		assert.Equal(t, "input1", conns[1].Name())
		assert.Equal(t, "input2", conns[2].Name())
		assert.True(t, conns[2].IsInput())
	})

	t.Run("every connector resolves to its snippet", func(t *testing.T) {
		for _, c := range s.ConnectorIDs() {
			owner, ok := m.SnippetForConnector(c)
			assert.True(t, ok)
			assert.Equal(t, id, owner)

			found, ok := s.FindConnector(c)
			assert.True(t, ok)
			assert.Equal(t, c, found.ID())
		}
	})

	t.Run("parameters start at their defaults", func(t *testing.T) {
		params := s.Parameters()
		require.Len(t, params, 2)
		assert.Equal(t, "0", params[0].Value())
		assert.Equal(t, "false", params[1].Value())

		owner, ok := m.SnippetForParameter(params[0].ID())
		assert.True(t, ok)
		assert.Equal(t, id, owner)
	})

	t.Run("ids are unique across entities", func(t *testing.T) {
		seen := map[core.ID]bool{core.ID(id): true}
		for _, c := range s.ConnectorIDs() {
			assert.False(t, seen[core.ID(c)], "id %s reused", c)
			seen[core.ID(c)] = true
		}
		for _, p := range s.Parameters() {
			assert.False(t, seen[core.ID(p.ID())], "id %s reused", p.ID())
			seen[core.ID(p.ID())] = true
		}
	})
}

func TestUpdateParameter(t *testing.T) {
	m := snippets.NewManager(core.NewIDGenerator())
	id := m.NewSnippet(definition("p", nil, nil, snippets.ParameterSpec{Name: "text", Kind: snippets.MultiLineText}))
	s, _ := m.FindSnippet(id)
	p, ok := s.FindParameterByName("text")
	require.True(t, ok)

	require.NoError(t, m.UpdateParameter(p.ID(), "line one\nline two"))
	assert.Equal(t, "line one\nline two", p.Value())

	err := m.UpdateParameter(snippets.ParameterID(9999), "x")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestDeleteSnippet(t *testing.T) {
	t.Run("unconnected snippet is removed everywhere", func(t *testing.T) {
		m := snippets.NewManager(core.NewIDGenerator())
		keep := m.NewSnippet(definition("keep", []string{"out"}, nil))
		gone := m.NewSnippet(definition("gone", []string{"out"}, []string{"in"},
			snippets.ParameterSpec{Name: "name", Kind: snippets.SingleLineText}))
		s, _ := m.FindSnippet(gone)
		conns := s.ConnectorIDs()
		param := s.Parameters()[0].ID()

		require.NoError(t, m.DeleteSnippet(gone))

		_, ok := m.FindSnippet(gone)
		assert.False(t, ok)
		for _, c := range conns {
			_, ok := m.SnippetForConnector(c)
			assert.False(t, ok)
		}
		_, ok = m.SnippetForParameter(param)
		assert.False(t, ok)

		st := m.Stats()
		assert.Equal(t, 1, st.Snippets)
		assert.Equal(t, 1, st.GraphNodes)
		assert.Equal(t, 0, st.GraphEdges)
		assert.Equal(t, 1, st.Connectors)

		_, ok = m.FindSnippet(keep)
		assert.True(t, ok)
	})

	t.Run("unknown snippet", func(t *testing.T) {
		m := snippets.NewManager(core.NewIDGenerator())
		err := m.DeleteSnippet(snippets.SnippetID(42))
		assert.True(t, errors.Is(err, core.ErrNotFound))
	})

	t.Run("connected snippet is refused", func(t *testing.T) {
		m := snippets.NewManager(core.NewIDGenerator())
		a := m.NewSnippet(definition("a", []string{"out"}, nil))
		b := m.NewSnippet(definition("b", nil, []string{"in"}))
		_, err := m.CreatePipeline(output(t, m, a, "out"), input(t, m, b, "in"))
		require.NoError(t, err)
		before := m.Stats()

		err = m.DeleteSnippet(b)
		assert.True(t, errors.Is(err, core.ErrStructural))
		assert.Equal(t, before, m.Stats())
	})

	t.Run("disconnect then delete", func(t *testing.T) {
		m := snippets.NewManager(core.NewIDGenerator())
		a := m.NewSnippet(definition("a", []string{"out"}, nil))
		b := m.NewSnippet(definition("b", []string{"out"}, []string{"in1", "in2"}))
		c := m.NewSnippet(definition("c", nil, []string{"in"}))
		_, err := m.CreatePipeline(output(t, m, a, "out"), input(t, m, b, "in1"))
		require.NoError(t, err)
		_, err = m.CreatePipeline(output(t, m, b, "out"), input(t, m, c, "in"))
		require.NoError(t, err)

		n, err := m.DisconnectSnippet(b)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 0, m.Stats().Pipelines)
		assert.Equal(t, 0, m.Stats().GraphEdges)
		assert.Equal(t, 0, m.FanoutSize())

		require.NoError(t, m.DeleteSnippet(b))
		assert.Equal(t, 2, m.Stats().GraphNodes)
	})
}

func TestSnippetsOrdered(t *testing.T) {
	m := snippets.NewManager(core.NewIDGenerator())
	first := m.NewSnippet(definition("first", nil, nil))
	second := m.NewSnippet(definition("second", nil, nil))

	all := m.Snippets()
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].ID())
	assert.Equal(t, second, all[1].ID())
}

func TestManagersShareGenerator(t *testing.T) {
	gen := core.NewIDGenerator()
	m1 := snippets.NewManager(gen)
	m2 := snippets.NewManager(gen)

	a := m1.NewSnippet(definition("a", []string{"out"}, nil))
	b := m2.NewSnippet(definition("b", []string{"out"}, nil))
	assert.NotEqual(t, a, b)

	_, ok := m1.FindSnippet(b)
	assert.False(t, ok, "managers must not see each other's snippets")
}

func TestObserverEvents(t *testing.T) {
	var events []snippets.Event
	m := snippets.NewManager(core.NewIDGenerator(),
		snippets.WithObserver(snippets.ObserverFunc(func(e snippets.Event) {
			events = append(events, e)
		})),
	)

	a := m.NewSnippet(definition("a", []string{"out"}, nil))
	b := m.NewSnippet(definition("b", nil, []string{"in"}))
	ok, err := m.ValidatePipeline(output(t, m, a, "out"), input(t, m, b, "in"))
	require.NoError(t, err)
	require.True(t, ok)
	p, err := m.CreatePipeline(output(t, m, a, "out"), input(t, m, b, "in"))
	require.NoError(t, err)
	require.NoError(t, m.DeletePipeline(p))

	kinds := make([]snippets.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []snippets.EventKind{
		snippets.EventSnippetCreated,
		snippets.EventSnippetCreated,
		snippets.EventPipelineValidated,
		snippets.EventPipelineCreated,
		snippets.EventPipelineDeleted,
	}, kinds)

	assert.True(t, events[2].Valid)
	assert.Equal(t, 1, events[3].Stats.Pipelines)
	assert.Equal(t, 0, events[4].Stats.Pipelines)
}
