package workers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"github.com/imageoptim-go/imageoptim/internal/binres"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// base implements the parts of Worker that every concrete class shares:
// run order, format set, used binaries, and the fixed option map. Concrete
// worker types embed base and supply their own Optimize.
type base struct {
	bin      binres.Bin
	runOrder int
	formats  map[imgformat.Format]struct{}
	options  map[string]any
}

func (b *base) RunOrder() int                               { return b.runOrder }
func (b *base) ImageFormats() map[imgformat.Format]struct{} { return b.formats }
func (b *base) UsedBins() []string                          { return []string{b.bin.Name} }
func (b *base) Options() map[string]any                     { return b.options }

func formatSet(formats ...imgformat.Format) map[imgformat.Format]struct{} {
	m := make(map[imgformat.Format]struct{}, len(formats))
	for _, f := range formats {
		m[f] = struct{}{}
	}
	return m
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// parseLooseVersion extracts the first dotted-numeric token from output,
// which covers the "name version X.Y.Z" / "X.Y.Z" banners these optimizer
// binaries print; none of them emit machine-readable version output.
func parseLooseVersion(output []byte) (string, error) {
	m := versionPattern.Find(output)
	if m == nil {
		return "", fmt.Errorf("imageoptim: no version token found in: %q", bytes.TrimSpace(output))
	}
	return string(m), nil
}

// #nosec G204 -- path always comes from binres.Resolve (exec.LookPath against a fixed binary name), args are built from validated option maps, never raw user strings.
func runCommand(ctx context.Context, path string, args ...string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("run %s %v: %w: %s", path, args, err, bytes.TrimSpace(out))
	}
	return nil
}

// runToStdout invokes path with args and writes its stdout to dst, for
// binaries (jpegtran) whose only output mode is writing the result image to
// stdout.
// #nosec G204 -- see runCommand.
func runToStdout(ctx context.Context, path string, dst imagepath.Path, args ...string) error {
	out, err := os.Create(dst.String())
	if err != nil {
		return fmt.Errorf("imageoptim: create %s: %w", dst.String(), err)
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s %v: %w: %s", path, args, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// verifyShrunk reports whether dst was written, is non-empty, and is
// strictly smaller than origSize. A missing dst (the binary declined to
// write one, e.g. "already optimal") is not an error — it's simply "no
// improvement" per the worker contract.
func verifyShrunk(origSize int64, dst imagepath.Path) (bool, error) {
	info, err := os.Stat(dst.String())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.Size() <= 0 || info.Size() >= origSize {
		return false, nil
	}
	return true, nil
}

// srcSize stats src; callers use this as the baseline verifyShrunk compares
// against.
func srcSize(src imagepath.Path) (int64, error) {
	return src.Size()
}
