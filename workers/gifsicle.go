package workers

import (
	"context"
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// GifsicleClass drives gifsicle, a lossless GIF recompressor with an
// explicit output-path flag.
type GifsicleClass struct{}

func (GifsicleClass) BinSym() string       { return "gifsicle" }
func (GifsicleClass) DefaultRunOrder() int { return 10 }
func (GifsicleClass) DefaultEnabled() bool { return true }

func (GifsicleClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "optimize_level", Type: TypeIntRange, Default: 3, IntMin: 1, IntMax: 3,
			Description: "gifsicle -Ol optimization level"},
		{Name: "strip_metadata", Type: TypeBool, Default: true, Description: "strip comment and extension blocks"},
	}
}

func (GifsicleClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "gifsicle",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "1.80",
	}
}

func (GifsicleClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.GIF)
}

func (c GifsicleClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &gifsicleWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type gifsicleWorker struct{ base }

func (w *gifsicleWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}

	level, _ := w.options["optimize_level"].(int)
	args := []string{fmt.Sprintf("-O%d", level)}
	if strip, _ := w.options["strip_metadata"].(bool); strip {
		args = append(args, "--no-comments", "--no-extensions", "--no-names")
	}
	args = append(args, "--output", dst.String(), src.String())

	if err := runCommand(ctx, w.bin.Path, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
