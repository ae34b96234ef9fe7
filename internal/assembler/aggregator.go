package assembler

import (
	"bytes"
	"fmt"

	"github.com/efebarandurmaz/framebind/internal/ir"
)

// Generator is the tool name written into the provenance banner.
const Generator = "framebind"

// PlatformFeature is the capability selecting the Apple framework linkage.
const PlatformFeature = "apple"

// Lints silenced in the aggregator. Generated code follows the native
// naming scheme and cannot be documented or simplified by hand.
var aggregatorLints = []string{
	"unused_imports",
	"deprecated",
	"non_snake_case",
	"non_camel_case_types",
	"non_upper_case_globals",
	"missing_docs",
	"clippy::too_many_arguments",
	"clippy::type_complexity",
	"clippy::upper_case_acronyms",
	"clippy::identity_op",
	"clippy::missing_safety_doc",
}

// RenderAggregator validates the package and renders mod.rs.
func (p *Package) RenderAggregator() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p.renderAggregator(), nil
}

// renderAggregator assumes p has been validated.
func (p *Package) renderAggregator() []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "// This file has been automatically generated by `%s`.\n", Generator)
	fmt.Fprintf(&b, "// DO NOT EDIT\n\n")
	fmt.Fprintf(&b, "//! # Bindings to the `%s` framework\n", p.LinkName)
	for _, lint := range aggregatorLints {
		fmt.Fprintf(&b, "#![allow(%s)]\n", lint)
	}
	b.WriteString("\n")

	link, platform := ir.RustString(p.LinkName), ir.RustString(PlatformFeature)
	switch p.Linkage {
	case Unconditional:
		fmt.Fprintf(&b, "#[link(name = %s, kind = \"framework\")]\n", link)
	default:
		fmt.Fprintf(&b, "#[cfg_attr(feature = %s, link(name = %s, kind = \"framework\"))]\n", platform, link)
		fmt.Fprintf(&b, "#[cfg_attr(not(feature = %s), link(name = %s))]\n", platform, link)
	}
	b.WriteString("extern \"C\" {}\n\n")

	keys := p.Keys()
	for _, key := range keys {
		fmt.Fprintf(&b, "#[path = \"%s.%s\"]\n", key, UnitExt)
		fmt.Fprintf(&b, "mod __%s;\n", key)
	}

	wroteExport := false
	for _, key := range keys {
		for _, stmt := range p.files[key].Exports() {
			if !wroteExport {
				b.WriteString("\n")
				wroteExport = true
			}
			b.WriteString(stmt.Required.CfgGateLn())
			fmt.Fprintf(&b, "%s use self::__%s::{%s};\n",
				ResolveVisibility(stmt.Exported.Name), key, stmt.Exported.Name)
		}
	}

	return b.Bytes()
}
