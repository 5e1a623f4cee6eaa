package snippets

import (
	"fmt"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/core"
)

// ValidatePipeline reports whether a pipeline between a and b would be
// acceptable, without changing anything observable.
//
// It returns an error only when a connector cannot be resolved, or when
// content-type checks were requested (core.ErrUnsupported). Otherwise it
// returns false if either connector already carries a pipeline, if both
// connectors belong to one snippet, or if the snippet-level edge would close a
// cycle. The cycle check adds a trial edge and removes it before returning.
func (m *Manager) ValidatePipeline(a, b ConnectorID) (bool, error) {
	const op = "validate pipeline"

	if m.contentTypeChecks {
		return false, &core.UnsupportedError{Feature: "connector content-type checking"}
	}

	src, err := m.resolve("from", a)
	if err != nil {
		return false, err
	}
	dst, err := m.resolve("to", b)
	if err != nil {
		return false, err
	}
	if src.connector.IsInput() && !dst.connector.IsInput() {
		src, dst = dst, src
	}

	if m.ConnectorCapacityFull(src.connector.id) || m.ConnectorCapacityFull(dst.connector.id) {
		return m.verdict(a, b, false, "connector already carries a pipeline"), nil
	}
	if src.snippet.id == dst.snippet.id {
		return m.verdict(a, b, false, fmt.Sprintf("both connectors belong to snippet %s", src.snippet.id)), nil
	}
	if _, exists := m.graph.FindEdge(src.snippet.node, dst.snippet.node); !exists {
		cyclic, err := m.wouldCycle(op, src.snippet.node, dst.snippet.node)
		if err != nil {
			return false, err
		}
		if cyclic {
			return m.verdict(a, b, false, "would create a cycle"), nil
		}
	}
	return m.verdict(a, b, true, ""), nil
}

func (m *Manager) verdict(a, b ConnectorID, ok bool, reason string) bool {
	ev := m.logger.Debug().
		Uint32("connector_a", uint32(a)).
		Uint32("connector_b", uint32(b)).
		Bool("valid", ok)
	if reason != "" {
		ev = ev.Str("reason", reason)
	}
	ev.Msg("pipeline validated")

	m.notify(EventPipelineValidated, core.ID(a), ok)
	return ok
}
