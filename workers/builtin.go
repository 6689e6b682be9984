package workers

// NewBuiltinRegistry returns a Registry pre-populated with every worker
// class this module ships, in a fixed discovery order. This order is the
// tie-break for workers sharing a run_order within the same format (see
// Registry.Register's discovery-order contract).
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(JpegoptimClass{})
	r.Register(JpegtranClass{})
	r.Register(PngquantClass{})
	r.Register(OptipngClass{})
	r.Register(PngcrushClass{})
	r.Register(AdvpngClass{})
	r.Register(GifsicleClass{})
	r.Register(SvgoClass{})
	return r
}
