package workers

import (
	"context"
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// OptipngClass drives optipng, a lossless PNG recompressor that supports
// writing its result to an explicit output path via -out.
type OptipngClass struct{}

func (OptipngClass) BinSym() string       { return "optipng" }
func (OptipngClass) DefaultRunOrder() int { return 30 }
func (OptipngClass) DefaultEnabled() bool { return true }

func (OptipngClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "level", Type: TypeIntRange, Default: 2, IntMin: 0, IntMax: 7,
			Description: "optimization level, higher tries more trial configurations"},
	}
}

func (OptipngClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "optipng",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "0.7.0",
	}
}

func (OptipngClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.PNG)
}

func (c OptipngClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &optipngWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type optipngWorker struct{ base }

func (w *optipngWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}

	level, _ := w.options["level"].(int)
	args := []string{fmt.Sprintf("-o%d", level), "-out", dst.String(), src.String()}

	if err := runCommand(ctx, w.bin.Path, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
