package ir

import (
	"fmt"
	"strings"
	"unicode"
)

// CfgGate returns the conditional-compilation attribute requiring every
// capability in s, or "" when s is empty.
func (s CapabilitySet) CfgGate() string {
	items := s.Items()
	switch len(items) {
	case 0:
		return ""
	case 1:
		return "#[cfg(feature = " + RustString(string(items[0])) + ")]"
	}
	parts := make([]string, len(items))
	for i, c := range items {
		parts[i] = "feature = " + RustString(string(c))
	}
	return "#[cfg(all(" + strings.Join(parts, ", ") + "))]"
}

// CfgGateLn is CfgGate followed by a newline, or "" when s is empty. Both
// the item itself and its re-export in the aggregator are gated with it.
func (s CapabilitySet) CfgGateLn() string {
	gate := s.CfgGate()
	if gate == "" {
		return ""
	}
	return gate + "\n"
}

// RustString quotes s as a Rust string literal. Printable characters are
// kept verbatim; others use Rust's \u{...} escape.
func RustString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			if unicode.IsPrint(r) {
				b.WriteRune(r)
			} else {
				fmt.Fprintf(&b, "\\u{%x}", r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
