// Package secrets resolves credentials for the symbol graph and other
// backends without keeping them in the config file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Well-known keys.
const (
	KeyGraphPassword = "graph_password"
	KeyGraphUsername = "graph_username"
)

// ErrNotFound is returned when no provider knows a key.
var ErrNotFound = errors.New("secret not found")

// Provider is a read-only secret backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config selects the primary backend. The environment is always consulted
// as a fallback.
type Config struct {
	Provider  string // "env" or "file"
	Path      string // secrets file for the file provider
	EnvPrefix string
}

func DefaultConfig() *Config {
	return &Config{Provider: "env", EnvPrefix: "FRAMEBIND_"}
}

// Manager looks keys up in the primary provider, then the fallback, and
// caches hits.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager builds a manager from cfg. file providers read through
// load, which callers usually back with afero.
func NewManager(cfg *Config, load func(path string) ([]byte, error)) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	env := NewEnvProvider(cfg.EnvPrefix)

	m := &Manager{primary: env, cache: make(map[string]string)}
	switch cfg.Provider {
	case "env", "":
	case "file":
		if cfg.Path == "" {
			return nil, errors.New("secrets: file provider requires a path")
		}
		if load == nil {
			load = os.ReadFile
		}
		data, err := load(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("secrets: reading %s: %w", cfg.Path, err)
		}
		fp, err := ParseFile(data)
		if err != nil {
			return nil, fmt.Errorf("secrets: %s: %w", cfg.Path, err)
		}
		m.primary, m.fallback = fp, env
	default:
		return nil, fmt.Errorf("secrets: unknown provider %q", cfg.Provider)
	}
	return m, nil
}

func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	val, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		if val, err := p.Get(ctx, key); err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Resolve returns configured when it is non-empty, otherwise the secret
// stored under key, otherwise "".
func (m *Manager) Resolve(ctx context.Context, configured, key string) string {
	if configured != "" {
		return configured
	}
	val, err := m.Get(ctx, key)
	if err != nil {
		return ""
	}
	return val
}

// EnvProvider reads PREFIX_KEY, then KEY, upper-cased.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "FRAMEBIND_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	name := strings.ToUpper(key)
	if val := os.Getenv(p.prefix + name); val != "" {
		return val, nil
	}
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s%s", ErrNotFound, p.prefix, name)
}
