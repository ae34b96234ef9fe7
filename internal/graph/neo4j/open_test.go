package neo4j

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/graph"
)

func TestOpenWithoutURIUsesMemory(t *testing.T) {
	repo, err := Open(context.Background(), config.Default(), afero.NewMemMapFs())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := repo.(*graph.MemoryRepository); !ok {
		t.Errorf("repo = %T, want *graph.MemoryRepository", repo)
	}
}

func TestOpenRejectsBadSecretsConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Graph.URI = "bolt://localhost:7687"
	cfg.Secrets = config.SecretsConfig{Provider: "file", Path: "/missing/secrets.yaml"}

	if _, err := Open(context.Background(), cfg, afero.NewMemMapFs()); err == nil {
		t.Fatal("expected error for unreadable secrets file")
	}
}
