// Package vipsthumb is a fallback PNG/WebP recompressor backed by libvips,
// for deployments that can't install pngcrush/optipng/advpng or cwebp but
// already carry libvips for other image work. Unlike every other worker in
// this module it isn't an external-process binary resolved through
// internal/binres — it's an in-process CGO binding — so it implements
// workers.Worker directly and is wired in as an "extra" instance via
// workers.Instances.WithExtra rather than through workers.Registry/Build.
package vipsthumb

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
	"github.com/imageoptim-go/imageoptim/workers"
)

var startOnce sync.Once

// ensureStarted initializes libvips exactly once per process. govips.Startup
// is not safe to call twice, and Shutdown is only meaningful once every
// Worker built from this package is done — callers that want a clean
// shutdown should call Shutdown explicitly at process exit; it's optional
// otherwise since the process is about to exit anyway.
func ensureStarted() {
	startOnce.Do(func() {
		govips.LoggingSettings(nil, govips.LogLevelError)
		govips.Startup(&govips.Config{ConcurrencyLevel: runtime.NumCPU(), CollectStats: false})
	})
}

// Shutdown releases libvips's internal caches. Safe to call even if this
// package's worker was never used.
func Shutdown() {
	govips.Shutdown()
}

// Options configures the vipsthumb worker.
type Options struct {
	// PNGCompression is the zlib compression level (0-9) used when
	// re-exporting PNG. PNG export is always lossless regardless of level.
	PNGCompression int
	// WebPLossless, when true, also handles WebP inputs via libvips's
	// lossless WebP encoder. Left false by default since lossless WebP
	// re-encoding of an already-lossless WebP rarely shrinks it further,
	// and keeps this worker's default format set minimal.
	WebPLossless bool
}

// New builds a vipsthumb Worker with the given run order. It participates
// in format dispatch exactly like a binary-backed worker: PNG always,
// WebP only if opts.WebPLossless is set.
func New(runOrder int, opts Options) workers.Worker {
	if opts.PNGCompression <= 0 {
		opts.PNGCompression = 9
	}
	formats := map[imgformat.Format]struct{}{imgformat.PNG: {}}
	if opts.WebPLossless {
		formats[imgformat.WebP] = struct{}{}
	}
	return &worker{
		runOrder: runOrder,
		formats:  formats,
		opts:     opts,
	}
}

type worker struct {
	runOrder int
	formats  map[imgformat.Format]struct{}
	opts     Options
}

func (w *worker) RunOrder() int                               { return w.runOrder }
func (w *worker) ImageFormats() map[imgformat.Format]struct{} { return w.formats }
func (w *worker) UsedBins() []string                          { return []string{"libvips (cgo, in-process)"} }
func (w *worker) Options() map[string]any {
	return map[string]any{"png_compression": w.opts.PNGCompression, "webp_lossless": w.opts.WebPLossless}
}

func (w *worker) Optimize(ctx context.Context, src, dst imagepath.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ensureStarted()

	format, ok := src.Format()
	if !ok {
		return false, fmt.Errorf("imageoptim: vipsthumb: %s has no recognized format", src.String())
	}

	ref, err := govips.NewImageFromFile(src.String())
	if err != nil {
		return false, fmt.Errorf("imageoptim: vipsthumb: decode %s: %w", src.String(), err)
	}
	defer ref.Close()

	origSize, err := src.Size()
	if err != nil {
		return false, err
	}

	var buf []byte
	switch format {
	case imgformat.PNG:
		ep := govips.NewPngExportParams()
		ep.Compression = w.opts.PNGCompression
		ep.StripMetadata = true
		buf, _, err = ref.ExportPng(ep)
	case imgformat.WebP:
		ep := govips.NewWebpExportParams()
		ep.Lossless = true
		ep.StripMetadata = true
		buf, _, err = ref.ExportWebp(ep)
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("imageoptim: vipsthumb: export %s: %w", src.String(), err)
	}
	if int64(len(buf)) >= origSize {
		return false, nil
	}

	if err := os.WriteFile(dst.String(), buf, 0o644); err != nil {
		return false, fmt.Errorf("imageoptim: vipsthumb: write %s: %w", dst.String(), err)
	}
	return true, nil
}
