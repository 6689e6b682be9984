package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// Registry holds the set of worker classes known to the process, in
// discovery (registration) order. Order of registration is not itself
// significant to worker application order — only to tie-breaking equal
// RunOrders — but it must be stable.
type Registry struct {
	mu      sync.Mutex
	classes []Class
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a class to the registry's discovery order. Registering
// the same BinSym twice is a programmer error; the later registration
// simply shadows the earlier one in config lookups sharing that name, but
// both occupy distinct discovery slots.
func (r *Registry) Register(c Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = append(r.classes, c)
}

// Classes returns a snapshot of registered classes in discovery order.
func (r *Registry) Classes() []Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Class, len(r.classes))
	copy(out, r.classes)
	return out
}

// ClassNames returns every registered class's BinSym, in discovery order.
func (r *Registry) ClassNames() []string {
	classes := r.Classes()
	names := make([]string, len(classes))
	for i, c := range classes {
		names[i] = c.BinSym()
	}
	return names
}

// Instances is the result of resolving a Registry against a composed
// config: the set of constructed, binary-resolved worker instances,
// pre-sorted per format by (RunOrder, DiscoveryIdx).
type Instances struct {
	byFormat map[imgformat.Format][]*Instance
	all      []*Instance
}

// ForFormat returns the ordered worker instances applicable to format.
// The returned slice must not be mutated by the caller.
func (in *Instances) ForFormat(f imgformat.Format) []*Instance {
	return in.byFormat[f]
}

// All returns every constructed instance, in discovery order.
func (in *Instances) All() []*Instance {
	return in.all
}

// WithExtra returns a new Instances with extra appended after every
// binary-backed instance and re-sorted per format. It exists for workers
// that aren't resolved through internal/binres at all — an in-process
// library binding like workers/vipsthumb — so they can still participate
// in the same (RunOrder, DiscoveryIdx) ordering without forcing the
// registry's binary-resolution model onto a worker that has no binary.
func (in *Instances) WithExtra(extra ...*Instance) *Instances {
	all := make([]*Instance, 0, len(in.all)+len(extra))
	all = append(all, in.all...)
	all = append(all, extra...)

	byFormat := make(map[imgformat.Format][]*Instance)
	for _, inst := range all {
		for f := range inst.ImageFormats() {
			byFormat[f] = append(byFormat[f], inst)
		}
	}
	for f := range byFormat {
		sortInstances(byFormat[f])
	}
	return &Instances{byFormat: byFormat, all: all}
}

// Warn is called once per worker that could not be constructed because its
// binary could not be resolved (missing or below the class's minimum
// version). This is never fatal: the engine proceeds without that worker.
type Warn func(binSym string, err error)

// Build constructs worker instances for every enabled, registered class:
// it validates the class's configured options, resolves its binary (a
// binary-unresolved class is skipped after calling warn, per §4.6's
// "worker skip" guarantee), and constructs the Worker via the class's New.
// A configuration error (unknown option, bad option type) is fatal and
// aborts the whole build, since config errors must propagate eagerly from
// construction rather than surface per-image.
//
// vendoredDir, if non-empty, is checked before PATH when resolving every
// class's binary (spec.md §4.3's "on PATH (or vendored bin dir)"), unless a
// class's own ResolveSpec already names one. It is the config layer's
// Config.VendoredBinDir, threaded through from NewEngine.
func Build(ctx context.Context, classes []Class, composed map[string]WorkerConfig, vendoredDir string, warn Warn) (*Instances, error) {
	if warn == nil {
		warn = func(string, error) {}
	}

	var all []*Instance
	for i, c := range classes {
		wc, ok := composed[c.BinSym()]
		if !ok {
			wc = WorkerConfig{Enabled: c.DefaultEnabled()}
		}
		if !wc.Enabled {
			continue
		}

		options, err := Validate(c.OptionDefinitions(), wc.Options)
		if err != nil {
			return nil, fmt.Errorf("imageoptim: worker %q: %w", c.BinSym(), err)
		}

		spec := c.ResolveSpec()
		if spec.VendoredDir == "" {
			spec.VendoredDir = vendoredDir
		}

		bin, err := binres.Resolve(ctx, spec)
		if err != nil {
			warn(c.BinSym(), err)
			continue
		}

		w := c.New(bin, c.DefaultRunOrder(), options)
		all = append(all, &Instance{Worker: w, BinSym: c.BinSym(), DiscoveryIdx: i})
	}

	byFormat := make(map[imgformat.Format][]*Instance)
	for _, inst := range all {
		for f := range inst.ImageFormats() {
			byFormat[f] = append(byFormat[f], inst)
		}
	}
	for f := range byFormat {
		sortInstances(byFormat[f])
	}

	return &Instances{byFormat: byFormat, all: all}, nil
}

// sortInstances orders by (RunOrder, DiscoveryIdx) ascending, the tie-break
// specified for equal run orders.
func sortInstances(instances []*Instance) {
	sort.SliceStable(instances, func(i, j int) bool {
		ri, rj := instances[i].RunOrder(), instances[j].RunOrder()
		if ri != rj {
			return ri < rj
		}
		return instances[i].DiscoveryIdx < instances[j].DiscoveryIdx
	})
}
