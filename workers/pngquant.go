package workers

import (
	"context"
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// PngquantClass drives pngquant, a lossy palette-quantization tool. Unlike
// every other class in this package it defaults to disabled: the engine's
// lossless guarantee must hold out of the box, so trading pixels for bytes
// is opt-in via config. When enabled it runs earliest (lowest run order)
// among the PNG workers so the lossless byte-level optimizers that follow
// operate on its already-quantized output.
type PngquantClass struct{}

func (PngquantClass) BinSym() string       { return "pngquant" }
func (PngquantClass) DefaultRunOrder() int { return 5 }
func (PngquantClass) DefaultEnabled() bool { return false }

func (PngquantClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "quality_min", Type: TypeIntRange, Default: 65, IntMin: 0, IntMax: 100},
		{Name: "quality_max", Type: TypeIntRange, Default: 95, IntMin: 0, IntMax: 100},
		{Name: "speed", Type: TypeIntRange, Default: 3, IntMin: 1, IntMax: 11},
	}
}

func (PngquantClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "pngquant",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "2.5.0",
	}
}

func (PngquantClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.PNG)
}

func (c PngquantClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &pngquantWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type pngquantWorker struct{ base }

func (w *pngquantWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}

	qMin, _ := w.options["quality_min"].(int)
	qMax, _ := w.options["quality_max"].(int)
	speed, _ := w.options["speed"].(int)

	args := []string{
		"--force",
		"--speed", fmt.Sprintf("%d", speed),
		"--quality", fmt.Sprintf("%d-%d", qMin, qMax),
		"--output", dst.String(),
		"--",
		src.String(),
	}

	if err := runCommand(ctx, w.bin.Path, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
