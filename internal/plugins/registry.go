package plugins

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnknownFormat = errors.New("unknown dump format")
	ErrUnknownTarget = errors.New("unknown target language")
)

// Registry maps dump formats to front ends and output languages to
// statement renderers.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]SourcePlugin
	targets map[string]TargetPlugin
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]SourcePlugin),
		targets: make(map[string]TargetPlugin),
	}
}

// RegisterSource adds p under its format, replacing any earlier plugin.
func (r *Registry) RegisterSource(p SourcePlugin) {
	r.mu.Lock()
	r.sources[strings.ToLower(p.Format())] = p
	r.mu.Unlock()
}

func (r *Registry) RegisterTarget(p TargetPlugin) {
	r.mu.Lock()
	r.targets[strings.ToLower(p.Language())] = p
	r.mu.Unlock()
}

func (r *Registry) Source(format string) (SourcePlugin, error) {
	r.mu.RLock()
	p, ok := r.sources[strings.ToLower(format)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownFormat, format, strings.Join(r.Formats(), ", "))
	}
	return p, nil
}

// SourceFor picks a front end from the extension of path. A plugin matches
// when the extension equals its format or one of its FileExtensions.
func (r *Registry) SourceFor(path string) (SourcePlugin, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range r.Formats() {
		r.mu.RLock()
		p := r.sources[f]
		r.mu.RUnlock()
		if "."+f == ext || hasExtension(p, ext) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: no front end for %q", ErrUnknownFormat, path)
}

func hasExtension(p SourcePlugin, ext string) bool {
	ep, ok := p.(FileExtensionsProvider)
	if !ok {
		return false
	}
	for _, e := range ep.FileExtensions() {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (r *Registry) Target(lang string) (TargetPlugin, error) {
	r.mu.RLock()
	p, ok := r.targets[strings.ToLower(lang)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownTarget, lang, strings.Join(r.Languages(), ", "))
	}
	return p, nil
}

// Formats returns the registered dump formats, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.sources)
}

// Languages returns the registered target languages, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.targets)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
