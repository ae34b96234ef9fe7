package graph

import (
	"context"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/ir"
)

// SymbolRecord is one re-exported symbol as stored in the index.
type SymbolRecord struct {
	Library      string   `json:"library"`
	File         string   `json:"file"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Visibility   string   `json:"visibility"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Repository stores the symbol index of generated packages.
type Repository interface {
	// StoreLibrary replaces everything indexed for library with the exports
	// of p.
	StoreLibrary(ctx context.Context, library string, p *assembler.Package) error
	// QuerySymbolsByCapability returns the symbols of library whose gate
	// includes capability, ordered by file and name.
	QuerySymbolsByCapability(ctx context.Context, library, capability string) ([]SymbolRecord, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// Records lists the exports of p in aggregator order: files by sanitized
// identity, statements in declaration order.
func Records(library string, p *assembler.Package) []SymbolRecord {
	var out []SymbolRecord
	for _, f := range p.Files() {
		key := f.ID.Sanitized()
		for _, s := range f.Exports() {
			out = append(out, SymbolRecord{
				Library:      library,
				File:         key,
				Name:         s.Exported.Name,
				Kind:         string(s.Kind),
				Visibility:   assembler.ResolveVisibility(s.Exported.Name).String(),
				Capabilities: capabilityNames(s.Required),
			})
		}
	}
	return out
}

func capabilityNames(set ir.CapabilitySet) []string {
	if set.IsEmpty() {
		return nil
	}
	names := make([]string, 0, set.Len())
	for _, c := range set.Items() {
		names = append(names, string(c))
	}
	return names
}
