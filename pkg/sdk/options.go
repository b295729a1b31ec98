package sdk

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// OptionType is the type of a rule option value.
type OptionType string

const (
	OptionBool       OptionType = "bool"
	OptionInt        OptionType = "int"
	OptionString     OptionType = "string"
	OptionStringList OptionType = "string-list"
)

// OptionSpec declares one rule option. A nil Default leaves the option unset
// when the user does not provide it.
type OptionSpec struct {
	Name        string
	Type        OptionType
	Default     any
	Description string
}

// Schema lists the options a rule accepts.
type Schema []OptionSpec

// Lookup returns the OptionSpec for name.
func (s Schema) Lookup(name string) (OptionSpec, bool) {
	for _, o := range s {
		if o.Name == name {
			return o, true
		}
	}
	return OptionSpec{}, false
}

// Resolve checks raw user options against the schema and fills in defaults.
// Unknown options and values of the wrong type are errors.
func (s Schema) Resolve(raw map[string]any) (Options, error) {
	values := make(map[string]any, len(s))
	for _, o := range s {
		if o.Default != nil {
			values[o.Name] = o.Default
		}
	}

	for _, name := range slices.Sorted(maps.Keys(raw)) {
		spec, ok := s.Lookup(name)
		if !ok {
			return Options{}, fmt.Errorf("unknown option %q", name)
		}
		v, err := coerce(spec.Type, raw[name])
		if err != nil {
			return Options{}, fmt.Errorf("option %q: %w", name, err)
		}
		if v != nil {
			values[name] = v
		}
	}
	return Options{values: values}, nil
}

func coerce(t OptionType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case OptionBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case OptionInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			return int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return int(n), nil
			}
		}
	case OptionString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case OptionStringList:
		switch l := v.(type) {
		case []string:
			return slices.Clone(l), nil
		case []any:
			out := make([]string, 0, len(l))
			for _, item := range l {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected list of strings, got element %T", item)
				}
				out = append(out, s)
			}
			return out, nil
		}
	default:
		return nil, fmt.Errorf("unsupported option type %q", t)
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}

// Options holds the resolved, immutable options of one rule activation.
type Options struct {
	values map[string]any
}

// Has reports whether the option is set, either by the user or by default.
func (o Options) Has(name string) bool {
	_, ok := o.values[name]
	return ok
}

// Bool returns a bool option. ok is false when the option is unset.
func (o Options) Bool(name string) (v, ok bool) {
	v, ok = o.values[name].(bool)
	return v, ok
}

// Int returns an int option, or def when unset.
func (o Options) Int(name string, def int) int {
	if v, ok := o.values[name].(int); ok {
		return v
	}
	return def
}

// String returns a string option, or def when unset.
func (o Options) String(name string, def string) string {
	if v, ok := o.values[name].(string); ok {
		return v
	}
	return def
}

// Strings returns a string-list option, or nil when unset.
func (o Options) Strings(name string) []string {
	v, _ := o.values[name].([]string)
	return slices.Clone(v)
}

// Map returns a copy of the resolved values.
func (o Options) Map() map[string]any {
	return maps.Clone(o.values)
}

// Describe renders the schema for documentation output.
func (s Schema) Describe() string {
	if len(s) == 0 {
		return "(no options)"
	}
	var b strings.Builder
	for _, o := range s {
		fmt.Fprintf(&b, "  %s (%s)", o.Name, o.Type)
		if o.Default != nil {
			fmt.Fprintf(&b, ", default %v", o.Default)
		}
		if o.Description != "" {
			fmt.Fprintf(&b, ": %s", o.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
