package assembler

import "strings"

// Visibility is the Rust visibility of a re-export in the aggregator.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	// VisibilityCrate restricts a re-export to the generated crate.
	VisibilityCrate
)

// PrivateMarker prefixes native API names that are private by convention.
const PrivateMarker = "_"

// ResolveVisibility returns crate visibility for names starting with
// PrivateMarker and public visibility otherwise.
func ResolveVisibility(name string) Visibility {
	if strings.HasPrefix(name, PrivateMarker) {
		return VisibilityCrate
	}
	return VisibilityPublic
}

func (v Visibility) String() string {
	if v == VisibilityCrate {
		return "pub(crate)"
	}
	return "pub"
}
