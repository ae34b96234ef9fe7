package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"
)

const stateVersion = "1.0.0"

// FileName is the state file kept next to the generated units.
const FileName = ".framebind-state.json"

// State describes the units written by the last successful run.
type State struct {
	Version     string            `json:"version"`
	Library     string            `json:"library"`
	LinkName    string            `json:"link_name"`
	GeneratedAt time.Time         `json:"generated_at"`
	Units       map[string]string `json:"units"`
}

// New creates a state for the given units.
func New(library, linkName string, fingerprints map[string]string) *State {
	return &State{
		Version:     stateVersion,
		Library:     library,
		LinkName:    linkName,
		GeneratedAt: time.Now().UTC(),
		Units:       fingerprints,
	}
}

// Load reads the state file from dir.
// Returns nil (no error) if there is none yet.
func Load(fsys afero.Fs, dir string) (*State, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if s.Units == nil {
		s.Units = map[string]string{}
	}
	return &s, nil
}

// Save writes the state file into dir.
func (s *State) Save(fsys afero.Fs, dir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fsys, filepath.Join(dir, FileName), append(data, '\n'), 0o644)
}

// Changes classifies unit paths against the previous run.
type Changes struct {
	Added     []string `json:"added,omitempty"`
	Changed   []string `json:"changed,omitempty"`
	Unchanged []string `json:"unchanged,omitempty"`
	Removed   []string `json:"removed,omitempty"`
}

// Diff compares current fingerprints with the previous state. With no
// previous state every unit is new.
func Diff(current map[string]string, previous *State) Changes {
	var c Changes
	for path, hash := range current {
		prev, ok := "", false
		if previous != nil {
			prev, ok = previous.Units[path]
		}
		switch {
		case !ok:
			c.Added = append(c.Added, path)
		case prev != hash:
			c.Changed = append(c.Changed, path)
		default:
			c.Unchanged = append(c.Unchanged, path)
		}
	}
	if previous != nil {
		for path := range previous.Units {
			if _, ok := current[path]; !ok {
				c.Removed = append(c.Removed, path)
			}
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Changed)
	sort.Strings(c.Unchanged)
	sort.Strings(c.Removed)
	return c
}
