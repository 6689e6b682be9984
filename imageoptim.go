// Package imageoptim losslessly reduces the byte size of raster images by
// driving a portfolio of external optimizer binaries — jpegoptim, jpegtran,
// pngquant, optipng, pngcrush, advpng, gifsicle, svgo, plus an in-process
// libvips fallback — through a uniform optimize(src,dst)→bool contract, and
// picking the shortest successful pipeline that preserves pixel-identical
// output.
package imageoptim

import (
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
)

// Format identifies a recognized raster or vector image container.
type Format = imgformat.Format

// Re-exported Format constants for convenience.
const (
	JPEG = imgformat.JPEG
	PNG  = imgformat.PNG
	GIF  = imgformat.GIF
	SVG  = imgformat.SVG
	WebP = imgformat.WebP
)

// OptimizedPath is a file path annotated with its pre-optimization size and
// a reference to the original it was produced from. Invariant: Size() of
// the underlying file is strictly less than OriginalSize — the engine never
// returns an OptimizedPath that didn't shrink the input.
type OptimizedPath struct {
	Path         imagepath.Path
	Original     imagepath.Path
	OriginalSize int64
}

// Size returns the current size in bytes of the optimized file.
func (o *OptimizedPath) Size() (int64, error) {
	return o.Path.Size()
}

// String returns the optimized file's absolute path.
func (o *OptimizedPath) String() string {
	return o.Path.String()
}
