package workers

import (
	"context"
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// JpegoptimClass drives jpegoptim, which rewrites a JPEG in place.
type JpegoptimClass struct{}

func (JpegoptimClass) BinSym() string       { return "jpegoptim" }
func (JpegoptimClass) DefaultRunOrder() int { return 10 }
func (JpegoptimClass) DefaultEnabled() bool { return true }

func (JpegoptimClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "max_quality", Type: TypeIntRange, Default: 100, IntMin: 0, IntMax: 100,
			Description: "upper quality bound passed to --max; 100 disables lossy requantization"},
		{Name: "strip_all", Type: TypeBool, Default: true,
			Description: "strip all non-essential markers (EXIF, comments, ICC)"},
	}
}

func (JpegoptimClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "jpegoptim",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "1.4.0",
	}
}

func (JpegoptimClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.JPEG)
}

func (c JpegoptimClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &jpegoptimWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type jpegoptimWorker struct{ base }

func (w *jpegoptimWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}
	// jpegoptim only rewrites files in place, so the scratch dst is seeded
	// from src first and then optimized where it sits.
	if err := src.Copy(dst); err != nil {
		return false, err
	}

	args := []string{}
	if q, _ := w.options["max_quality"].(int); q < 100 {
		args = append(args, fmt.Sprintf("--max=%d", q))
	}
	if strip, _ := w.options["strip_all"].(bool); strip {
		args = append(args, "--strip-all")
	}
	args = append(args, dst.String())

	if err := runCommand(ctx, w.bin.Path, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
