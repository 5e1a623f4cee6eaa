package main

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/morganhiggin2/snippetbuilder/pkg/snippets"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/catalog"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/metrics"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/project"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/runplan"
	"github.com/morganhiggin2/snippetbuilder/pkg/snippets/session"
)

// workspace is a project applied to a fresh engine.
type workspace struct {
	file     *project.File
	catalog  *catalog.Catalog
	session  *session.Session
	applied  *project.Applied
	registry *prometheus.Registry
}

func resolveCatalogPath(projectPath string, f *project.File) (string, error) {
	if catalogPath != "" {
		return catalogPath, nil
	}
	if f == nil || f.Catalog == "" {
		return "", fmt.Errorf("no catalog given; pass --catalog")
	}
	if filepath.IsAbs(f.Catalog) {
		return f.Catalog, nil
	}
	return filepath.Join(filepath.Dir(projectPath), f.Catalog), nil
}

func loadCatalog(path string, store *session.Store) (*catalog.Catalog, error) {
	cat := catalog.New(store.IDs())
	if err := cat.LoadFile(path); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Debug().Str("path", path).Int("definitions", cat.Len()).Msg("catalog loaded")
	return cat, nil
}

func openWorkspace(projectPath string) (*workspace, error) {
	f, err := project.LoadFile(projectPath)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	path, err := resolveCatalogPath(projectPath, f)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	store := session.NewStore(logger)
	store.Attach(metrics.NewCollector(reg))
	cat, err := loadCatalog(path, store)
	if err != nil {
		return nil, err
	}

	w := &workspace{
		file:     f,
		catalog:  cat,
		session:  store.Open(f.Name),
		registry: reg,
	}
	err = w.session.Do(func(m *snippets.Manager) error {
		applied, err := project.Apply(f, m, cat)
		w.applied = applied
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("apply project %s: %w", projectPath, err)
	}
	return w, nil
}

func (w *workspace) plan() (*runplan.Plan, error) {
	var p *runplan.Plan
	err := w.session.Do(func(m *snippets.Manager) error {
		var err error
		p, err = runplan.Build(m)
		return err
	})
	return p, err
}

func (w *workspace) stats() snippets.Stats {
	var st snippets.Stats
	_ = w.session.Do(func(m *snippets.Manager) error {
		st = m.Stats()
		return nil
	})
	return st
}

// label names a port the way project files do.
func (w *workspace) label(ref snippets.PortRef) string {
	name, ok := w.applied.Labels()[ref.Snippet]
	if !ok {
		name = ref.Snippet.String()
	}
	return name + "." + ref.Port
}
