package plugins

import (
	"context"

	"github.com/efebarandurmaz/framebind/internal/ir"
)

// SourceFile is one declaration dump written by the header front end.
type SourceFile struct {
	Path    string
	Content []byte
}

// SourcePlugin decodes front-end declaration dumps into the IR.
type SourcePlugin interface {
	// Format returns the dump format identifier (e.g. "json").
	Format() string
	// Load decodes one dump. Statement order within each file is kept.
	Load(ctx context.Context, src SourceFile) (*ir.Library, error)
}

// FileExtensionsProvider is an optional interface for source plugins to
// declare which dump extensions they read (e.g. []string{".yaml", ".yml"}).
type FileExtensionsProvider interface {
	FileExtensions() []string
}
