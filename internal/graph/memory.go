package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/ir"
)

// MemoryRepository is an in-process Repository used when no graph database
// is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	symbols map[string][]memorySymbol
}

type memorySymbol struct {
	rec  SymbolRecord
	caps ir.CapabilitySet
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{symbols: make(map[string][]memorySymbol)}
}

func (r *MemoryRepository) StoreLibrary(ctx context.Context, library string, p *assembler.Package) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recs := Records(library, p)
	syms := make([]memorySymbol, len(recs))
	for i, rec := range recs {
		syms[i] = memorySymbol{rec: rec, caps: ir.Capabilities(rec.Capabilities...)}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.symbols[library] = syms
	return nil
}

func (r *MemoryRepository) QuerySymbolsByCapability(ctx context.Context, library, capability string) ([]SymbolRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SymbolRecord
	want := ir.Capability(capability)
	for _, sym := range r.symbols[library] {
		if sym.caps.Contains(want) {
			out = append(out, sym.rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

var _ Repository = (*MemoryRepository)(nil)
