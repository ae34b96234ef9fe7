package assembler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/framebind/internal/ir"
	"github.com/efebarandurmaz/framebind/internal/observability"
)

// Renderer produces the textual form of one statement. It is called once
// per statement per run; its output is written verbatim.
type Renderer interface {
	RenderStatement(stmt *ir.Statement) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(stmt *ir.Statement) (string, error)

func (f RendererFunc) RenderStatement(stmt *ir.Statement) (string, error) { return f(stmt) }

// Unit is one rendered output file.
type Unit struct {
	// Path is relative to the output directory.
	Path string
	// File is empty for the aggregator.
	File    ir.FileID
	Content []byte
}

// IsAggregator reports whether u is mod.rs.
func (u Unit) IsAggregator() bool { return u.File == "" }

// RenderFile renders the statements of one file in declaration order.
func (p *Package) RenderFile(id ir.FileID, r Renderer) ([]byte, error) {
	f, ok := p.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("render %s: %w", id, ErrUnknownFile)
	}
	return renderFile(f, r)
}

func renderFile(f *ir.File, r Renderer) ([]byte, error) {
	var b bytes.Buffer
	for i, stmt := range f.Statements {
		if stmt == nil {
			return nil, &DefectError{File: f.ID, Index: i, Err: ErrNilStatement}
		}
		text, err := r.RenderStatement(stmt)
		if err != nil {
			return nil, fmt.Errorf("render %s statement #%d (%s): %w", f.ID, i, stmt.Label(), err)
		}
		b.WriteString(text)
	}
	return b.Bytes(), nil
}

// Render validates the package, then renders every file and the aggregator.
// Files are independent of each other and are rendered on up to workers
// goroutines (workers <= 0 means unlimited). Units are returned sorted by
// path with the aggregator last.
func (p *Package) Render(ctx context.Context, r Renderer, workers int) ([]Unit, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	files := p.Files()
	units := make([]Unit, len(files)+1)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	// The aggregator only needs the file map, not the rendered text.
	g.Go(func() error {
		units[len(files)] = Unit{Path: AggregatorName, Content: p.renderAggregator()}
		return nil
	})

	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, span := observability.StartRenderSpan(ctx, string(f.ID), len(f.Statements))
			defer span.End()

			content, err := renderFile(f, r)
			if err != nil {
				observability.RecordError(span, err)
				return err
			}
			units[i] = Unit{Path: UnitPath(f.ID), File: f.ID, Content: content}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(units[:len(files)], func(a, b int) bool {
		return units[a].Path < units[b].Path
	})
	slog.Debug("rendered package", "link_name", p.LinkName, "units", len(units))
	return units, nil
}
