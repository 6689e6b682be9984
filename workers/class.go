package workers

import (
	"context"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// Worker is the uniform contract the engine drives: given a source and a
// scratch destination, write an optimized image to dst and report whether
// it is valid and preferred over src. Implementations must tolerate
// concurrent calls on distinct (src, dst) pairs.
type Worker interface {
	// ImageFormats is the constant set of formats this instance handles.
	ImageFormats() map[imgformat.Format]struct{}
	// RunOrder determines application sequence; lower runs earlier.
	RunOrder() int
	// UsedBins names the external binaries this instance invokes.
	UsedBins() []string
	// Options returns the normalized, construction-time-fixed option map.
	Options() map[string]any
	// Optimize invokes the underlying binary. A false return (with nil
	// error) means "no improvement, not fatal"; a non-nil error is always
	// folded into a false result by the caller, never propagated as a
	// pipeline-ending failure.
	Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error)
}

// Class is a worker's static declaration: its binary identity, the formats
// and option schema it supports, and a constructor that turns a resolved
// binary plus validated options into a Worker instance. Concrete classes
// live in this package's per-binary files (jpegoptim.go, pngquant.go, ...).
type Class interface {
	// BinSym is the stable identifier used for config lookup and the
	// binary resolver cache key.
	BinSym() string
	// DefaultRunOrder is this class's run_order absent config override.
	DefaultRunOrder() int
	// DefaultEnabled is whether this class runs when config doesn't
	// mention it at all. Lossy-by-construction workers (pngquant) default
	// to false, since the engine's lossless guarantee (§8, testable
	// property 9) must hold out of the box; enabling them is an explicit
	// opt-in via config.
	DefaultEnabled() bool
	// OptionDefinitions is this class's option schema.
	OptionDefinitions() []OptionDefinition
	// ResolveSpec describes how to locate and version-check the binary.
	ResolveSpec() binres.Spec
	// ImageFormats computes the format set this instance handles, given
	// its normalized options (some classes enable an extra format via an
	// option; the set itself is still frozen once New returns).
	ImageFormats(options map[string]any) map[imgformat.Format]struct{}
	// New builds a Worker from a resolved binary and validated options.
	New(bin binres.Bin, runOrder int, options map[string]any) Worker
}

// Instance pairs a constructed Worker with its discovery index, so ties in
// RunOrder break by stable discovery order per the registry's contract.
type Instance struct {
	Worker
	BinSym       string
	DiscoveryIdx int
}
