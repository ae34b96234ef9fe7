package secrets

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FileProvider serves secrets from a flat YAML (or JSON) mapping. Meant for
// local development.
type FileProvider struct {
	data map[string]string
}

// ParseFile decodes a flat key/value document.
func ParseFile(data []byte) (*FileProvider, error) {
	m := make(map[string]string)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return &FileProvider{data: m}, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(_ context.Context, key string) (string, error) {
	val, ok := p.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return val, nil
}
