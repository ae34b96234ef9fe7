package ir

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Capability is a named optional feature (a Cargo feature of the generated
// crate) controlling conditional compilation of a declaration.
type Capability string

const capSep = "\x00"

// CapabilitySet is an immutable set of capabilities. Two sets holding the
// same flags compare equal with ==, and a set can be used as a map key. The
// zero value is the empty set.
type CapabilitySet struct {
	key string
}

// NewCapabilitySet builds a set from caps, dropping duplicates and empty names.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	if len(caps) == 0 {
		return CapabilitySet{}
	}
	uniq := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		if c == "" {
			continue
		}
		uniq[string(c)] = struct{}{}
	}
	names := make([]string, 0, len(uniq))
	for n := range uniq {
		names = append(names, n)
	}
	sort.Strings(names)
	return CapabilitySet{key: strings.Join(names, capSep)}
}

// Capabilities is a convenience wrapper over NewCapabilitySet for string literals.
func Capabilities(names ...string) CapabilitySet {
	caps := make([]Capability, len(names))
	for i, n := range names {
		caps[i] = Capability(n)
	}
	return NewCapabilitySet(caps...)
}

func (s CapabilitySet) IsEmpty() bool { return s.key == "" }

func (s CapabilitySet) Len() int {
	if s.key == "" {
		return 0
	}
	return strings.Count(s.key, capSep) + 1
}

// Items returns the capabilities in sorted order.
func (s CapabilitySet) Items() []Capability {
	if s.key == "" {
		return nil
	}
	parts := strings.Split(s.key, capSep)
	out := make([]Capability, len(parts))
	for i, p := range parts {
		out[i] = Capability(p)
	}
	return out
}

func (s CapabilitySet) Contains(c Capability) bool {
	for _, item := range s.Items() {
		if item == c {
			return true
		}
	}
	return false
}

// Union returns a set holding the flags of both s and other.
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	if other.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return other
	}
	return NewCapabilitySet(append(s.Items(), other.Items()...)...)
}

func (s CapabilitySet) String() string {
	return "{" + strings.ReplaceAll(s.key, capSep, ", ") + "}"
}

func (s CapabilitySet) strings() []string {
	items := s.Items()
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = string(c)
	}
	return out
}

func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	names := s.strings()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("capability set: %w", err)
	}
	*s = Capabilities(names...)
	return nil
}

func (s CapabilitySet) MarshalYAML() (any, error) {
	return s.strings(), nil
}

func (s *CapabilitySet) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		return fmt.Errorf("capability set: %w", err)
	}
	*s = Capabilities(names...)
	return nil
}
