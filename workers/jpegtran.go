package workers

import (
	"context"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// JpegtranClass drives jpegtran, a lossless JPEG transform tool that writes
// its result to stdout.
type JpegtranClass struct{}

func (JpegtranClass) BinSym() string       { return "jpegtran" }
func (JpegtranClass) DefaultRunOrder() int { return 20 }
func (JpegtranClass) DefaultEnabled() bool { return true }

func (JpegtranClass) OptionDefinitions() []OptionDefinition {
	return []OptionDefinition{
		{Name: "progressive", Type: TypeBool, Default: true, Description: "emit a progressive JPEG"},
		{Name: "copy_markers", Type: TypeEnum, Default: "none", EnumValues: []string{"none", "comments", "all"},
			Description: "which metadata markers to preserve"},
	}
}

func (JpegtranClass) ResolveSpec() binres.Spec {
	return binres.Spec{
		Name:         "jpegtran",
		VersionArgs:  []string{"-version"},
		ParseVersion: parseLooseVersion,
		MinVersion:   "8.0.0",
	}
}

func (JpegtranClass) ImageFormats(map[string]any) map[imgformat.Format]struct{} {
	return formatSet(imgformat.JPEG)
}

func (c JpegtranClass) New(bin binres.Bin, runOrder int, options map[string]any) Worker {
	return &jpegtranWorker{base{bin: bin, runOrder: runOrder, formats: c.ImageFormats(options), options: options}}
}

type jpegtranWorker struct{ base }

func (w *jpegtranWorker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	orig, err := srcSize(src)
	if err != nil {
		return false, err
	}

	args := []string{"-optimize", "-copy", w.options["copy_markers"].(string)}
	if prog, _ := w.options["progressive"].(bool); prog {
		args = append(args, "-progressive")
	}
	args = append(args, src.String())

	if err := runToStdout(ctx, w.bin.Path, dst, args...); err != nil {
		return false, err
	}
	return verifyShrunk(orig, dst)
}
