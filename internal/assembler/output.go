package assembler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Output renders the package and writes every unit below dir, replacing
// whatever was there before. Per-file units are written first, concurrently;
// mod.rs is written last so a failed run never leaves an aggregator that
// references units from this run which were not written.
//
// Storage errors are returned as produced by fs. Nothing is written when
// validation fails.
func (p *Package) Output(ctx context.Context, fs afero.Fs, dir string, r Renderer, workers int) ([]Unit, error) {
	units, err := p.Render(ctx, r, workers)
	if err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	files, agg := units[:len(units)-1], units[len(units)-1]

	// A failed write cancels gctx; queued writes then stop early and the
	// first storage error is what Wait returns.
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, u := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return WriteUnit(fs, dir, u)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := WriteUnit(fs, dir, agg); err != nil {
		return nil, err
	}

	slog.Info("wrote package", "link_name", p.LinkName, "dir", dir, "units", len(units))
	return units, nil
}

// WriteUnit truncates and rewrites the unit at its path below dir.
func WriteUnit(fs afero.Fs, dir string, u Unit) error {
	return afero.WriteFile(fs, filepath.Join(dir, u.Path), u.Content, os.FileMode(0o644))
}
