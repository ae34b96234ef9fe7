package assembler

import (
	"errors"
	"fmt"

	"github.com/efebarandurmaz/framebind/internal/ir"
)

var (
	// ErrOwningFileMismatch: a statement sits in a file other than the one it claims to belong to.
	ErrOwningFileMismatch = errors.New("statement owning file does not match its file")
	// ErrSymbolFileMismatch: an exported symbol claims a different owning file than its statement.
	ErrSymbolFileMismatch = errors.New("exported symbol owning file does not match its file")
	// ErrUnknownFile: a statement or symbol references a file absent from the package.
	ErrUnknownFile = errors.New("reference to a file absent from the package")
	// ErrNilStatement: the front end produced a nil statement.
	ErrNilStatement = errors.New("nil statement")
	// ErrSanitizeCollision: two distinct file identities map to the same module identifier.
	ErrSanitizeCollision = errors.New("file identities collide after sanitization")
	// ErrDuplicateFile: the same file identity was added twice.
	ErrDuplicateFile = errors.New("duplicate file identity")
	// ErrEmptyFileID: a file without identity was added.
	ErrEmptyFileID = errors.New("empty file identity")
)

// DefectError reports an inconsistency in front-end data, pointing at the
// offending statement. Defects are never repaired; the run aborts.
type DefectError struct {
	File      ir.FileID
	Index     int
	Statement string
	Ref       ir.FileID
	Err       error
}

func (e *DefectError) Error() string {
	msg := fmt.Sprintf("%s: statement #%d", e.File, e.Index)
	if e.Statement != "" {
		msg += fmt.Sprintf(" (%s)", e.Statement)
	}
	if e.Ref != "" {
		return fmt.Sprintf("%s references %q: %v", msg, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *DefectError) Unwrap() error { return e.Err }
