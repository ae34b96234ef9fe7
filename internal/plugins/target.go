package plugins

import (
	"github.com/efebarandurmaz/framebind/internal/assembler"
)

// TargetPlugin renders single statements in a target language. The
// assembler sequences its output into units.
type TargetPlugin interface {
	assembler.Renderer
	// Language returns the target language identifier (e.g. "rust").
	Language() string
}
