package neo4j

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/graph"
	"github.com/efebarandurmaz/framebind/internal/secrets"
)

// Open returns the repository described by cfg: Neo4j when graph.uri is
// set, memory otherwise. Credentials missing from the config are looked up
// through the secrets manager.
func Open(ctx context.Context, cfg *config.Config, fsys afero.Fs) (graph.Repository, error) {
	if cfg.Graph.URI == "" {
		slog.Warn("graph.uri not set, indexing into memory only")
		return graph.NewMemory(), nil
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	sm, err := secrets.NewManager(&secrets.Config{
		Provider:  cfg.Secrets.Provider,
		Path:      cfg.Secrets.Path,
		EnvPrefix: "FRAMEBIND_",
	}, func(path string) ([]byte, error) { return afero.ReadFile(fsys, path) })
	if err != nil {
		return nil, fmt.Errorf("graph credentials: %w", err)
	}
	user := sm.Resolve(ctx, cfg.Graph.Username, secrets.KeyGraphUsername)
	pass := sm.Resolve(ctx, cfg.Graph.Password, secrets.KeyGraphPassword)
	return NewNeo4j(ctx, cfg.Graph.URI, user, pass)
}
