package state

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/efebarandurmaz/framebind/internal/assembler"
)

// Prune deletes the units listed in removed from dir. Only bare unit file
// names (no directories, unit extension) are touched, so a tampered state
// file cannot delete anything else. It returns the paths actually removed.
func Prune(fsys afero.Fs, dir string, removed []string) ([]string, error) {
	var pruned []string
	for _, path := range removed {
		if !isUnitName(path) {
			slog.Warn("refusing to prune unexpected path", "dir", dir, "path", path)
			continue
		}
		err := fsys.Remove(filepath.Join(dir, path))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return pruned, err
		}
		slog.Info("pruned stale unit", "dir", dir, "path", path)
		pruned = append(pruned, path)
	}
	return pruned, nil
}

func isUnitName(path string) bool {
	return path != "" &&
		filepath.Base(path) == path &&
		!strings.HasPrefix(path, ".") &&
		strings.HasSuffix(path, "."+assembler.UnitExt)
}

// MismatchKind says how an on-disk unit differs from a fresh render.
type MismatchKind string

const (
	Missing MismatchKind = "missing"
	Stale   MismatchKind = "stale"
	Orphan  MismatchKind = "orphan"
)

// Mismatch is one unit that is not up to date.
type Mismatch struct {
	Path string       `json:"path"`
	Kind MismatchKind `json:"kind"`
}

func (m Mismatch) String() string { return fmt.Sprintf("%s (%s)", m.Path, m.Kind) }

// Check compares freshly rendered units with what dir contains. Units the
// previous run recorded but the package no longer produces are reported as
// orphans.
func Check(fsys afero.Fs, dir string, units []assembler.Unit) ([]Mismatch, error) {
	var out []Mismatch
	produced := make(map[string]bool, len(units))
	for _, u := range units {
		produced[u.Path] = true
		data, err := afero.ReadFile(fsys, filepath.Join(dir, u.Path))
		if errors.Is(err, fs.ErrNotExist) {
			out = append(out, Mismatch{Path: u.Path, Kind: Missing})
			continue
		}
		if err != nil {
			return nil, err
		}
		if HashContent(data) != HashContent(u.Content) {
			out = append(out, Mismatch{Path: u.Path, Kind: Stale})
		}
	}

	prev, err := Load(fsys, dir)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		for _, path := range Diff(nil, prev).Removed {
			if produced[path] {
				continue
			}
			if ok, _ := afero.Exists(fsys, filepath.Join(dir, path)); ok {
				out = append(out, Mismatch{Path: path, Kind: Orphan})
			}
		}
	}
	return out, nil
}
