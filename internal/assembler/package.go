// Package assembler turns the translated files of one framework into a
// compilable multi-module output: one unit per header plus the aggregating
// mod.rs that declares the sub-modules, re-exports their symbols and links
// the native framework.
package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/efebarandurmaz/framebind/internal/ir"
)

const (
	// UnitExt is the extension of every generated unit.
	UnitExt = "rs"
	// AggregatorName is the reserved file name of the aggregator unit.
	AggregatorName = "mod." + UnitExt
)

// LinkageStyle selects how the aggregator links the native framework.
type LinkageStyle int

const (
	// PlatformConditional links as a framework on Apple platforms and by
	// plain library name on the compatibility runtime.
	PlatformConditional LinkageStyle = iota
	// Unconditional always links as a framework.
	Unconditional
)

func (l LinkageStyle) String() string {
	if l == Unconditional {
		return "unconditional"
	}
	return "platform-conditional"
}

// ParseLinkageStyle parses the configuration spelling of a linkage style.
func ParseLinkageStyle(s string) (LinkageStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "platform-conditional", "platform_conditional", "conditional":
		return PlatformConditional, nil
	case "unconditional", "always":
		return Unconditional, nil
	}
	return PlatformConditional, fmt.Errorf("unknown linkage style %q", s)
}

// Package is the set of files making up one framework crate, keyed by
// sanitized file identity.
type Package struct {
	LinkName string
	Linkage  LinkageStyle

	files map[string]*ir.File
}

// New creates an empty package linking against linkName.
func New(linkName string, linkage LinkageStyle) *Package {
	return &Package{
		LinkName: linkName,
		Linkage:  linkage,
		files:    make(map[string]*ir.File),
	}
}

// AddFile indexes f under its sanitized identity. Identities that collide
// after sanitization are rejected rather than silently overwriting one unit
// with another.
func (p *Package) AddFile(f *ir.File) error {
	if f == nil || f.ID == "" {
		return ErrEmptyFileID
	}
	key := f.ID.Sanitized()
	if prev, ok := p.files[key]; ok {
		if prev.ID == f.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateFile, f.ID)
		}
		return fmt.Errorf("%w: %q and %q both become %q", ErrSanitizeCollision, prev.ID, f.ID, key)
	}
	p.files[key] = f
	return nil
}

// Len returns the number of files.
func (p *Package) Len() int { return len(p.files) }

// Lookup returns the file whose identity sanitizes like id.
func (p *Package) Lookup(id ir.FileID) (*ir.File, bool) {
	f, ok := p.files[id.Sanitized()]
	return f, ok
}

// Keys returns the sanitized file identities in sorted order.
func (p *Package) Keys() []string {
	keys := make([]string, 0, len(p.files))
	for k := range p.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Files returns the files ordered by sanitized identity.
func (p *Package) Files() []*ir.File {
	keys := p.Keys()
	out := make([]*ir.File, len(keys))
	for i, k := range keys {
		out[i] = p.files[k]
	}
	return out
}

// UnitPath returns the path, relative to the output directory, of the unit
// generated for a file.
func UnitPath(id ir.FileID) string {
	return id.Sanitized() + "." + UnitExt
}

// Stats summarizes the package content.
type Stats struct {
	Files        int
	Statements   int
	Exports      int
	GatedExports int
	CrateExports int
	Capabilities int
}

// Stats counts files, statements and re-exports.
func (p *Package) Stats() Stats {
	st := Stats{Files: len(p.files)}
	var caps ir.CapabilitySet
	for _, f := range p.files {
		for _, s := range f.Statements {
			if s != nil {
				st.Statements++
				caps = caps.Union(s.Required)
			}
		}
		for _, s := range f.Exports() {
			st.Exports++
			if !s.Required.IsEmpty() {
				st.GatedExports++
			}
			if ResolveVisibility(s.Exported.Name) == VisibilityCrate {
				st.CrateExports++
			}
		}
	}
	st.Capabilities = caps.Len()
	return st
}
