package workers

import (
	"context"
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// SvgoClass drives svgo, an SVG minifier. Its default plugin set removes
// only structurally redundant markup (comments, editor metadata,
// redundant whitespace) so output renders identically; this class
// accordingly reports itself as always applicable to SVG with no separate
// lossy mode.
type SvgoClass struct{}

func (SvgoClass) BinSym() string       { return "svgo" }
func (SvgoClass) DefaultRunOrder() int { return 10 }
func (SvgoClass) DefaultEnabled() bool { return true }

func (SvgoClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "precision", Type: TypeIntRange, Default: 3, IntMin: 0, IntMax: 8,
			Description: "floating point precision for coordinates, in significant digits"},
		{Name: "pretty", Type: TypeBool, Default: false, Description: "pretty-print the minified output (for debugging only)"},
	}
}

func (SvgoClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "svgo",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "2.0.0",
	}
}

func (SvgoClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.SVG)
}

func (c SvgoClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &svgoWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type svgoWorker struct{ base }

func (w *svgoWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}

	precision, _ := w.options["precision"].(int)
	args := []string{"--precision", fmt.Sprintf("%d", precision), "-i", src.String(), "-o", dst.String()}
	if pretty, _ := w.options["pretty"].(bool); pretty {
		args = append(args, "--pretty")
	}

	if err := runCommand(ctx, w.bin.Path, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
