package catpub

import (
	"fmt"
	"sort"
)

// Selection picks objects by name.  A Selection either matches every object
// ("all") or an explicit, possibly empty, set of names.  In TOML it is given as
// `true` for all objects, `false` for none, or an array of names.  An absent
// key selects nothing.
type Selection struct {
	all   bool
	names []string
}

// SelectAll returns a Selection matching every object.
func SelectAll() Selection {
	return Selection{all: true}
}

// SelectNames returns a Selection matching only the given names.
func SelectNames(names ...string) Selection {
	return Selection{names: dedupe(names)}
}

// All returns true if the selection matches every object.
func (s Selection) All() bool {
	return s.all
}

// Names returns the sorted explicit names of the selection.  It is nil for a
// Selection matching all objects.
func (s Selection) Names() []string {
	if s.all {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Empty returns true if the selection can match nothing.
func (s Selection) Empty() bool {
	return !s.all && len(s.names) == 0
}

// Resolve returns the selected names out of all available names.  Explicit
// names which are not available are still returned so that callers can warn
// about them.
func (s Selection) Resolve(available []string) []string {
	if s.all {
		return dedupe(available)
	}
	return s.Names()
}

func (s Selection) String() string {
	if s.all {
		return "all"
	}
	return fmt.Sprintf("%v", s.names)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (s *Selection) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case bool:
		*s = Selection{all: v}
	case []interface{}:
		names := make([]string, 0, len(v))
		for i, elem := range v {
			name, ok := elem.(string)
			if !ok {
				return fmt.Errorf("selection element %d must be a string, got %T", i, elem)
			}
			names = append(names, name)
		}
		*s = SelectNames(names...)
	default:
		return fmt.Errorf("selection must be a boolean or an array of strings, got %T", data)
	}
	return nil
}

func dedupe(names []string) []string {
	set := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, found := set[name]; found {
			continue
		}
		set[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
