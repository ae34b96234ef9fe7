package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.temporal.io/sdk/temporal"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/generator"
	"github.com/efebarandurmaz/framebind/internal/graph"
	"github.com/efebarandurmaz/framebind/internal/observability"
	"github.com/efebarandurmaz/framebind/internal/plugins"
)

// ErrTypeInvalidPackage marks activity failures caused by package defects.
const ErrTypeInvalidPackage = "InvalidPackage"

// LibraryInput selects one library to regenerate.
type LibraryInput struct {
	Library string
	Prune   bool
}

// LibraryResult is the serializable outcome of regenerating one library.
type LibraryResult struct {
	Library string
	Units   int
	Exports int
	Added   []string
	Changed []string
	Removed []string
	Pruned  int
	Indexed int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Config   *config.Config
	Registry *plugins.Registry
	Fs       afero.Fs
	Graph    graph.Repository
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

func ListLibrariesActivity(ctx context.Context) ([]string, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("activity dependencies not set")
	}
	return deps.Config.LibraryNames(), nil
}

func AssembleLibraryActivity(ctx context.Context, input LibraryInput) (LibraryResult, error) {
	if deps == nil || deps.Config == nil {
		return LibraryResult{}, errors.New("activity dependencies not set")
	}
	lib, err := deps.Config.Library(input.Library)
	if err != nil {
		return LibraryResult{}, err
	}

	m := observability.Metrics()
	m.ActiveGenerations.Inc()
	defer m.ActiveGenerations.Dec()
	start := time.Now()

	res, err := generator.Run(ctx, generator.Options{
		Library:  lib,
		Target:   deps.Config.Output.Target,
		Workers:  deps.Config.Output.Workers,
		Prune:    input.Prune,
		Fs:       deps.Fs,
		Registry: deps.Registry,
	})
	if err != nil {
		m.RecordGeneration(time.Since(start), 0, 0, err)
		var defect *assembler.DefectError
		if errors.As(err, &defect) || errors.Is(err, assembler.ErrSanitizeCollision) || errors.Is(err, assembler.ErrDuplicateFile) {
			return LibraryResult{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidPackage, err)
		}
		return LibraryResult{}, err
	}
	m.RecordGeneration(time.Since(start), len(res.Units), res.Pruned, nil)

	return LibraryResult{
		Library: res.Library,
		Units:   len(res.Units),
		Exports: res.Package.Stats().Exports,
		Added:   res.Changes.Added,
		Changed: res.Changes.Changed,
		Removed: res.Changes.Removed,
		Pruned:  res.Pruned,
	}, nil
}

// IndexLibraryActivity publishes a library's exports to the symbol graph and
// returns how many were stored.
func IndexLibraryActivity(ctx context.Context, library string) (int, error) {
	if deps == nil || deps.Config == nil {
		return 0, errors.New("activity dependencies not set")
	}
	if deps.Graph == nil {
		return 0, errors.New("no symbol graph configured")
	}
	lib, err := deps.Config.Library(library)
	if err != nil {
		return 0, err
	}
	reg := deps.Registry
	if reg == nil {
		reg = generator.DefaultRegistry()
	}
	fsys := deps.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	p, err := generator.LoadPackage(ctx, fsys, reg, lib)
	if err != nil {
		return 0, err
	}
	if err := p.Validate(); err != nil {
		return 0, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidPackage, err)
	}
	if err := deps.Graph.StoreLibrary(ctx, lib.Name, p); err != nil {
		return 0, fmt.Errorf("indexing %s: %w", lib.Name, err)
	}
	n := len(graph.Records(lib.Name, p))
	observability.Metrics().RecordIndex(n)
	observability.Audit().LogIndex(lib.Name, n)
	return n, nil
}
