package workers

import (
	"context"
	"fmt"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// AdvpngClass drives advpng (part of AdvanceCOMP), which recompresses a
// PNG's DEFLATE stream in place with no output-path option.
type AdvpngClass struct{}

func (AdvpngClass) BinSym() string       { return "advpng" }
func (AdvpngClass) DefaultRunOrder() int { return 50 }
func (AdvpngClass) DefaultEnabled() bool { return true }

func (AdvpngClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "level", Type: TypeIntRange, Default: 4, IntMin: 1, IntMax: 4,
			Description: "compression effort, 1 (fast) to 4 (best, i.e. --shrink-insane)"},
	}
}

func (AdvpngClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "advpng",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "1.15",
	}
}

func (AdvpngClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.PNG)
}

func (c AdvpngClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &advpngWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type advpngWorker struct{ base }

func (w *advpngWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}
	if err := src.Copy(dst); err != nil {
		return false, err
	}

	level, _ := w.options["level"].(int)
	shrinkFlag := map[int]string{1: "--shrink-fast", 2: "--shrink-normal", 3: "--shrink-extreme", 4: "--shrink-insane"}[level]
	if shrinkFlag == "" {
		shrinkFlag = "--shrink-normal"
	}

	if err := runCommand(ctx, w.bin.Path, "--recompress", shrinkFlag, dst.String()); err != nil {
		return false, err
	}
	ok, err := verifyShrunk(orig, dst)
	if err != nil {
		return false, fmt.Errorf("advpng: %w", err)
	}
	return ok, nil
}
