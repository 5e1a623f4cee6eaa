package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/metrics"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/session"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	m := snippets.NewManager(core.NewIDGenerator(), snippets.WithObserver(c))

	a := m.NewSnippet(snippets.Definition{Name: "a", Outputs: []snippets.Port{{Name: "out"}}})
	b := m.NewSnippet(snippets.Definition{Name: "b", Inputs: []snippets.Port{{Name: "in"}}})
	sa, _ := m.FindSnippet(a)
	sb, _ := m.FindSnippet(b)
	out := sa.ConnectorIDs()[0]
	in := sb.ConnectorIDs()[0]

	ok, err := m.ValidatePipeline(out, in)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = m.CreatePipeline(out, in)
	require.NoError(t, err)
	ok, err = m.ValidatePipeline(out, in)
	require.NoError(t, err)
	require.False(t, ok)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Snippets.WithLabelValues("")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Pipelines.WithLabelValues("")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GraphEdges.WithLabelValues("")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Validations.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Validations.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Mutations.WithLabelValues(string(snippets.EventSnippetCreated))))

	_, err = m.DisconnectSnippet(a)
	require.NoError(t, err)
	require.NoError(t, m.DeleteSnippet(a))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Snippets.WithLabelValues("")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Pipelines.WithLabelValues("")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.GraphEdges.WithLabelValues("")))

	n, err := testutil.GatherAndCount(reg, "snippets_live", "snippets_pipeline_validations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCollectorPerSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)
	st := session.NewStore(zerolog.Nop())
	st.Attach(c)

	def := snippets.Definition{Name: "node", Outputs: []snippets.Port{{Name: "out"}}}
	busy := st.Open("busy")
	quiet := st.Open("quiet")
	require.NoError(t, busy.Do(func(m *snippets.Manager) error {
		m.NewSnippet(def)
		m.NewSnippet(def)
		m.NewSnippet(def)
		return nil
	}))
	require.NoError(t, quiet.Do(func(m *snippets.Manager) error {
		m.NewSnippet(def)
		return nil
	}))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.Snippets.WithLabelValues(busy.ID().String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Snippets.WithLabelValues(quiet.ID().String())))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Mutations.WithLabelValues(string(snippets.EventSnippetCreated))))

	require.NoError(t, st.Close(busy.ID()))
	n, err := testutil.GatherAndCount(reg, "snippets_live")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "closed session's gauge should be gone")
}

func TestCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)
	assert.Panics(t, func() { metrics.NewCollector(reg) })
}
