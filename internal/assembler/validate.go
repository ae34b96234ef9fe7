package assembler

import (
	"errors"

	"github.com/efebarandurmaz/framebind/internal/ir"
)

// Validate checks that every statement belongs to the file it was filed
// under and that every exported symbol names that same file. All defects
// are reported together, each as a *DefectError.
//
// Validate runs before anything is rendered or written, so a defective
// package never leaves partial output behind.
func (p *Package) Validate() error {
	var errs []error
	for _, key := range p.Keys() {
		f := p.files[key]
		for i, stmt := range f.Statements {
			if err := p.checkStatement(key, f, i, stmt); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (p *Package) checkStatement(key string, f *ir.File, i int, stmt *ir.Statement) error {
	if stmt == nil {
		return &DefectError{File: f.ID, Index: i, Err: ErrNilStatement}
	}
	defect := func(ref ir.FileID, err error) error {
		return &DefectError{File: f.ID, Index: i, Statement: stmt.Label(), Ref: ref, Err: err}
	}

	if err := p.checkRef(key, stmt.OwningFile, ErrOwningFileMismatch); err != nil {
		return defect(stmt.OwningFile, err)
	}
	if stmt.Exported != nil {
		if err := p.checkRef(key, stmt.Exported.OwningFile, ErrSymbolFileMismatch); err != nil {
			return defect(stmt.Exported.OwningFile, err)
		}
	}
	return nil
}

func (p *Package) checkRef(key string, ref ir.FileID, mismatch error) error {
	refKey := ref.Sanitized()
	if _, ok := p.files[refKey]; !ok {
		return ErrUnknownFile
	}
	if refKey != key {
		return mismatch
	}
	return nil
}
