// Package ir holds the translated declarations handed over by the header
// front end: statements grouped into files, each statement annotated with
// the capability flags it needs and the symbol it exports, if any.
package ir

import "fmt"

// FileID identifies the header a File was extracted from. It is the raw
// header base name (e.g. "NSObject" or "AVFoundation+Private").
type FileID string

// Sanitized returns the module identifier derived from the file identity.
func (id FileID) Sanitized() string {
	return SanitizeFileName(string(id))
}

// StmtKind classifies a statement for the renderer.
type StmtKind string

const (
	StmtClass    StmtKind = "class"
	StmtProtocol StmtKind = "protocol"
	StmtConst    StmtKind = "const"
	StmtStatic   StmtKind = "static"
	StmtFn       StmtKind = "fn"
	StmtTypedef  StmtKind = "typedef"
	StmtRaw      StmtKind = "raw"
)

// ExportedSymbol is a nameable output symbol introduced by a statement.
type ExportedSymbol struct {
	Name       string `json:"name" yaml:"name"`
	OwningFile FileID `json:"owning_file" yaml:"owning_file"`
}

// Statement is one translated declaration. It is never mutated after the
// front end produced it.
type Statement struct {
	OwningFile FileID          `json:"owning_file" yaml:"owning_file"`
	Kind       StmtKind        `json:"kind" yaml:"kind"`
	Name       string          `json:"name,omitempty" yaml:"name,omitempty"`
	Required   CapabilitySet   `json:"required,omitempty" yaml:"required,omitempty"`
	Exported   *ExportedSymbol `json:"exported,omitempty" yaml:"exported,omitempty"`

	// Renderer payload.
	Superclass string `json:"superclass,omitempty" yaml:"superclass,omitempty"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Value      string `json:"value,omitempty" yaml:"value,omitempty"`
	Signature  string `json:"signature,omitempty" yaml:"signature,omitempty"`
	Body       string `json:"body,omitempty" yaml:"body,omitempty"`
}

// Label identifies the statement in diagnostics.
func (s *Statement) Label() string {
	switch {
	case s == nil:
		return "<nil>"
	case s.Exported != nil:
		return fmt.Sprintf("%s %s", s.Kind, s.Exported.Name)
	case s.Name != "":
		return fmt.Sprintf("%s %s", s.Kind, s.Name)
	default:
		return string(s.Kind)
	}
}

// File is the ordered list of statements extracted from one header, in the
// header's declaration order.
type File struct {
	ID         FileID       `json:"id" yaml:"id"`
	Statements []*Statement `json:"statements" yaml:"statements"`
}

// Exports returns the statements of f that carry an exported symbol, in
// declaration order. Nil statements are skipped.
func (f *File) Exports() []*Statement {
	var out []*Statement
	for _, s := range f.Statements {
		if s != nil && s.Exported != nil {
			out = append(out, s)
		}
	}
	return out
}

// Library is everything the front end extracted for one framework.
type Library struct {
	Name  string  `json:"library" yaml:"library"`
	Files []*File `json:"files" yaml:"files"`
}
