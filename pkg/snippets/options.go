package snippets

import (
	"github.com/rs/zerolog"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for mutation and validation traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithObserver registers an observer notified after every committed change.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
}

// WithContentTypeChecks requests connector content-type compatibility checks
// during validation. The checks are not implemented, so enabling this makes
// ValidatePipeline fail with core.ErrUnsupported instead of silently skipping
// them.
func WithContentTypeChecks(enabled bool) Option {
	return func(m *Manager) {
		m.contentTypeChecks = enabled
	}
}

// WithCapacity pre-sizes the internal tables.
func WithCapacity(snippets int) Option {
	return func(m *Manager) {
		if snippets > 0 {
			m.capacity = snippets
		}
	}
}
