package workers

import (
	"context"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// PngcrushClass drives pngcrush, a lossless PNG recompressor that takes an
// explicit source and destination path as positional arguments.
type PngcrushClass struct{}

func (PngcrushClass) BinSym() string       { return "pngcrush" }
func (PngcrushClass) DefaultRunOrder() int { return 40 }
func (PngcrushClass) DefaultEnabled() bool { return true }

func (PngcrushClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "brute", Type: TypeBool, Default: false,
			Description: "try every filter/compression-level combination (slow)"},
		{Name: "strip_metadata", Type: TypeBool, Default: true,
			Description: "remove ancillary chunks (text, time, ICC profiles)"},
	}
}

func (PngcrushClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "pngcrush",
		VersionArgs:  []string{"-version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "1.7.0",
	}
}

func (PngcrushClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.PNG)
}

func (c PngcrushClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &pngcrushWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type pngcrushWorker struct{ base }

func (w *pngcrushWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}

	var args []string
	if brute, _ := w.options["brute"].(bool); brute {
		args = append(args, "-brute")
	}
	if strip, _ := w.options["strip_metadata"].(bool); strip {
		args = append(args, "-rem", "allb")
	}
	args = append(args, "-q", src.String(), dst.String())

	if err := runCommand(ctx, w.bin.Path, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
