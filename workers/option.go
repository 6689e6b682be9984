// Package workers declares the worker class/instance model: the uniform
// optimize(src,dst)→bool contract that wraps each external optimizer
// binary, its option schema, and the registry that discovers and
// constructs worker instances from declared classes plus composed config.
package workers

import (
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/optimerr"
)

// OptionType names the accepted value kinds for a worker option.
type OptionType string

const (
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeIntRange OptionType = "int_range"
	TypeFloat    OptionType = "float"
	TypeString   OptionType = "string"
	TypeEnum     OptionType = "enum"
	TypeArray    OptionType = "array"
)

// OptionDefinition declares one option a worker class recognizes.
// Construction-time validation checks every configured value against its
// definition before a worker instance is built.
type OptionDefinition struct {
	Name        string
	Type        OptionType
	Default     any
	Description string

	// EnumValues constrains TypeEnum values to this set.
	EnumValues []string
	// IntMin/IntMax constrain TypeIntRange values; both zero means
	// unconstrained (equivalent to TypeInt).
	IntMin, IntMax int

	// Normalize, if set, runs after type-checking and may transform the
	// value (e.g. clamp, lowercase, dedupe). It must not change the value's
	// Go type.
	Normalize func(any) (any, error)
}

// Validate checks raw against defs: unknown keys in raw are a fatal
// configuration error, missing keys take their declared default, and
// present values are type-checked and normalized. The returned map always
// has exactly one entry per definition in defs.
func Validate(defs []OptionDefinition, raw map[string]any) (map[string]any, error) {
	byName := make(map[string]OptionDefinition, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	for name := range raw {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("imageoptim: option %q: %w", name, optimerr.ErrUnknownOption)
		}
	}

	out := make(map[string]any, len(defs))
	for _, d := range defs {
		v, present := raw[d.Name]
		if !present {
			out[d.Name] = d.Default
			continue
		}
		checked, err := checkType(d, v)
		if err != nil {
			return nil, err
		}
		if d.Normalize != nil {
			checked, err = d.Normalize(checked)
			if err != nil {
				return nil, fmt.Errorf("imageoptim: option %q: normalize: %w", d.Name, err)
			}
		}
		out[d.Name] = checked
	}
	return out, nil
}

func checkType(d OptionDefinition, v any) (any, error) {
	badType := func() error {
		return fmt.Errorf("imageoptim: option %q: value %v is not a valid %s: %w", d.Name, v, d.Type, optimerr.ErrBadOptionType)
	}

	switch d.Type {
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return nil, badType()
		}
	case TypeInt:
		if _, ok := asInt(v); !ok {
			return nil, badType()
		}
	case TypeIntRange:
		n, ok := asInt(v)
		if !ok {
			return nil, badType()
		}
		if d.IntMin != 0 || d.IntMax != 0 {
			if n < d.IntMin || n > d.IntMax {
				return nil, fmt.Errorf("imageoptim: option %q: %d outside [%d,%d]: %w", d.Name, n, d.IntMin, d.IntMax, optimerr.ErrBadOptionType)
			}
		}
	case TypeFloat:
		if _, ok := asFloat(v); !ok {
			return nil, badType()
		}
	case TypeString:
		if _, ok := v.(string); !ok {
			return nil, badType()
		}
	case TypeEnum:
		s, ok := v.(string)
		if !ok {
			return nil, badType()
		}
		found := false
		for _, allowed := range d.EnumValues {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("imageoptim: option %q: %q not among %v: %w", d.Name, s, d.EnumValues, optimerr.ErrBadOptionType)
		}
	case TypeArray:
		if _, ok := v.([]string); !ok {
			return nil, badType()
		}
	default:
		return nil, fmt.Errorf("imageoptim: option %q: unknown declared type %q", d.Name, d.Type)
	}
	return v, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
