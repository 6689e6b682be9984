package workers

import (
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/optimerr"
)

// WorkerConfig is the composed, not-yet-validated configuration for one
// worker class: whether it's enabled, and its raw (unvalidated) option
// overrides.
type WorkerConfig struct {
	Enabled bool
	Options map[string]any
}

// ComposeConfig deep-merges a sequence of config layers (global, local,
// inline, in that order — later layers override earlier ones) into a
// per-worker-class config map. A layer's value for a worker key must be
// either a bool (enable/disable at defaults) or a map[string]any (enable
// with those option overrides, merged key-by-key into whatever that
// worker's options already were). Every worker class starts at its own
// DefaultEnabled with no overrides; defaults for unset options are filled
// in later by Validate, keyed off each class's OptionDefinitions.
//
// A key naming a class not present in classes is a fatal configuration
// error — construction never silently ignores a typo'd worker name.
func ComposeConfig(classes []Class, layers ...map[string]any) (map[string]WorkerConfig, error) {
	known := make(map[string]struct{}, len(classes))
	result := make(map[string]WorkerConfig, len(classes))
	for _, c := range classes {
		known[c.BinSym()] = struct{}{}
		result[c.BinSym()] = WorkerConfig{Enabled: c.DefaultEnabled(), Options: map[string]any{}}
	}

	for _, layer := range layers {
		for key, val := range layer {
			if _, ok := known[key]; !ok {
				return nil, fmt.Errorf("imageoptim: config: %w: %q", optimerr.ErrUnknownWorker, key)
			}
			wc := result[key]
			switch v := val.(type) {
			case bool:
				wc.Enabled = v
			case map[string]any:
				wc.Enabled = true
				if wc.Options == nil {
					wc.Options = make(map[string]any, len(v))
				}
				for k, ov := range v {
					wc.Options[k] = ov
				}
			default:
				return nil, fmt.Errorf("imageoptim: config: worker %q: value must be bool or map, got %T: %w", key, val, optimerr.ErrBadOptionType)
			}
			result[key] = wc
		}
	}
	return result, nil
}
