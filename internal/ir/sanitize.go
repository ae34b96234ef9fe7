package ir

import "strings"

// SanitizeFileName maps a header-derived file name to a valid Rust module
// identifier. Some SDK headers carry characters such as '+' in their name;
// every byte outside [A-Za-z0-9_] becomes '_', and a leading digit gets a
// '_' prefix. Applying it twice yields the same result as applying it once.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 1)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			b.WriteByte(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteByte(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
