// Package decldump reads the declaration dumps written by the header front
// end. A dump describes one framework: its files in any order and, per file,
// the translated statements in header declaration order.
//
//	library: Foundation
//	files:
//	  - id: NSObject
//	    statements:
//	      - owning_file: NSObject
//	        kind: class
//	        name: NSObject
//	        required: [NSObject]
//	        exported: {name: NSObject, owning_file: NSObject}
package decldump

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/efebarandurmaz/framebind/internal/ir"
	"github.com/efebarandurmaz/framebind/internal/plugins"
)

// Plugin implements SourcePlugin for JSON or YAML dumps.
type Plugin struct {
	format string
	exts   []string
	decode func(data []byte, lib *ir.Library) error
}

// NewJSON returns a plugin reading JSON dumps. Unknown fields are rejected.
func NewJSON() *Plugin {
	return &Plugin{
		format: "json",
		exts:   []string{".json"},
		decode: func(data []byte, lib *ir.Library) error {
			dec := json.NewDecoder(bytes.NewReader(data))
			dec.DisallowUnknownFields()
			return dec.Decode(lib)
		},
	}
}

// NewYAML returns a plugin reading YAML dumps. Unknown fields are rejected.
func NewYAML() *Plugin {
	return &Plugin{
		format: "yaml",
		exts:   []string{".yaml", ".yml"},
		decode: func(data []byte, lib *ir.Library) error {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			return dec.Decode(lib)
		},
	}
}

func (p *Plugin) Format() string { return p.format }

func (p *Plugin) FileExtensions() []string { return p.exts }

// Load decodes src. The dump is taken as-is: ownership mismatches are left
// for the assembler's validation pass to report.
func (p *Plugin) Load(ctx context.Context, src plugins.SourceFile) (*ir.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lib ir.Library
	if err := p.decode(src.Content, &lib); err != nil {
		return nil, fmt.Errorf("decode %s dump %s: %w", p.format, src.Path, err)
	}
	for i, f := range lib.Files {
		if f == nil {
			return nil, fmt.Errorf("%s: file entry #%d is empty", src.Path, i)
		}
	}
	return &lib, nil
}

var (
	_ plugins.SourcePlugin           = (*Plugin)(nil)
	_ plugins.FileExtensionsProvider = (*Plugin)(nil)
)
