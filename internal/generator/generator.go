// Package generator runs the binding pipeline for one configured library:
// load the front-end dump, assemble the package, write the units and keep
// the regeneration state up to date.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/config"
	"github.com/efebarandurmaz/framebind/internal/observability"
	"github.com/efebarandurmaz/framebind/internal/plugins"
	"github.com/efebarandurmaz/framebind/internal/plugins/source/decldump"
	"github.com/efebarandurmaz/framebind/internal/plugins/target/rust"
	"github.com/efebarandurmaz/framebind/internal/state"
)

// ErrNoInput is returned when a library has no dump to read.
var ErrNoInput = errors.New("no input dump configured")

// DefaultRegistry returns a registry with the JSON and YAML dump readers and
// the Rust renderer.
func DefaultRegistry() *plugins.Registry {
	r := plugins.NewRegistry()
	r.RegisterSource(decldump.NewJSON())
	r.RegisterSource(decldump.NewYAML())
	r.RegisterTarget(rust.New())
	return r
}

// Options configures one run.
type Options struct {
	Library  config.Library
	Target   string
	Workers  int
	Prune    bool
	Fs       afero.Fs
	Registry *plugins.Registry
	Logger   *slog.Logger
	Audit    *observability.AuditLogger
}

func (o *Options) defaults() {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Target == "" {
		o.Target = "rust"
	}
	if o.Audit == nil {
		o.Audit = observability.Audit()
	}
}

// Result describes a completed run.
type Result struct {
	Library  string
	Package  *assembler.Package
	Units    []assembler.Unit
	Changes  state.Changes
	Pruned   int
	Duration time.Duration
}

// LoadPackage reads the library's dump and indexes its files into a package.
// The source plugin is chosen by the configured format, or by the dump's
// extension when no format is set.
func LoadPackage(ctx context.Context, fsys afero.Fs, reg *plugins.Registry, lib config.Library) (*assembler.Package, error) {
	if lib.Input == "" {
		return nil, fmt.Errorf("library %s: %w", lib.Name, ErrNoInput)
	}

	var (
		src plugins.SourcePlugin
		err error
	)
	if lib.Format != "" {
		src, err = reg.Source(lib.Format)
	} else {
		src, err = reg.SourceFor(lib.Input)
	}
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(fsys, lib.Input)
	if err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}
	dump, err := src.Load(ctx, plugins.SourceFile{Path: lib.Input, Content: data})
	if err != nil {
		return nil, err
	}
	if dump.Name != "" && !strings.EqualFold(dump.Name, lib.Name) {
		slog.Warn("dump names a different library", "library", lib.Name, "dump", dump.Name, "input", lib.Input)
	}

	p := assembler.New(lib.LinkName, lib.Linkage)
	for _, f := range dump.Files {
		if err := p.AddFile(f); err != nil {
			return nil, fmt.Errorf("library %s: %w", lib.Name, err)
		}
	}
	return p, nil
}

// Run generates the library's units into its output directory. With Prune
// set, units written by the previous run that this run no longer produces
// are removed. The state file is only updated after every unit is written.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts.defaults()
	opts.Audit.LogGenerateStart(opts.Library.Name, opts.Library.Input, opts.Library.OutputDir)
	res, err := run(ctx, opts)
	if err != nil {
		opts.Audit.LogGenerateError(opts.Library.Name, err)
		return nil, err
	}
	opts.Audit.LogGenerateComplete(res.Library, res.Duration, len(res.Units),
		len(res.Changes.Added), len(res.Changes.Changed), len(res.Changes.Removed), res.Pruned)
	return res, nil
}

func run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	lib := opts.Library
	log := opts.Logger.With("library", lib.Name)

	ctx, span := observability.StartAssembleSpan(ctx, lib.Name)
	defer span.End()

	target, err := opts.Registry.Target(opts.Target)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	p, err := LoadPackage(ctx, opts.Fs, opts.Registry, lib)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	st := p.Stats()
	observability.RecordPackageShape(span, st.Files, st.Statements, st.Exports)
	log.Debug("assembled package", "files", st.Files, "statements", st.Statements, "exports", st.Exports)

	previous, err := state.Load(opts.Fs, lib.OutputDir)
	if err != nil {
		// A broken state file only loses prune information.
		log.Warn("ignoring unreadable state", "error", err)
		previous = nil
	}

	wctx, wspan := observability.StartWriteSpan(ctx, lib.OutputDir)
	units, err := p.Output(wctx, opts.Fs, lib.OutputDir, target, opts.Workers)
	if err != nil {
		observability.RecordError(wspan, err)
		wspan.End()
		observability.RecordError(span, err)
		return nil, err
	}

	fingerprints := state.Fingerprints(units)
	changes := state.Diff(fingerprints, previous)

	var pruned []string
	if opts.Prune && len(changes.Removed) > 0 {
		pruned, err = state.Prune(opts.Fs, lib.OutputDir, changes.Removed)
		for _, path := range pruned {
			opts.Audit.LogUnitPrune(lib.Name, path)
		}
		if err != nil {
			observability.RecordError(wspan, err)
			wspan.End()
			return nil, fmt.Errorf("pruning %s: %w", lib.OutputDir, err)
		}
	}

	bytes := 0
	for _, u := range units {
		bytes += len(u.Content)
	}
	observability.RecordWriteResult(wspan, len(units), bytes, len(pruned))
	wspan.End()

	if err := state.New(lib.Name, lib.LinkName, fingerprints).Save(opts.Fs, lib.OutputDir); err != nil {
		return nil, fmt.Errorf("saving state: %w", err)
	}

	log.Info("generated bindings",
		"units", len(units),
		"added", len(changes.Added),
		"changed", len(changes.Changed),
		"removed", len(changes.Removed),
		"pruned", len(pruned),
	)

	return &Result{
		Library:  lib.Name,
		Package:  p,
		Units:    units,
		Changes:  changes,
		Pruned:   len(pruned),
		Duration: time.Since(start),
	}, nil
}

// Check renders the library in memory and compares the result with the
// units on disk. Nothing is written.
func Check(ctx context.Context, opts Options) ([]state.Mismatch, error) {
	opts.defaults()
	lib := opts.Library

	ctx, span := observability.StartAssembleSpan(ctx, lib.Name)
	defer span.End()

	target, err := opts.Registry.Target(opts.Target)
	if err != nil {
		return nil, err
	}
	p, err := LoadPackage(ctx, opts.Fs, opts.Registry, lib)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	units, err := p.Render(ctx, target, opts.Workers)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	mismatches, err := state.Check(opts.Fs, lib.OutputDir, units)
	if err != nil {
		return nil, err
	}
	opts.Audit.LogCheck(lib.Name, len(mismatches))
	return mismatches, nil
}
