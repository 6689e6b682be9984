package imageoptim

import (
	"context"
	"sync"

	"github.com/imageoptim-go/imageoptim/config"
)

// defaultEngine is a lazily-initialized, process-wide Engine backing the
// package-level convenience functions, following the teacher's
// "process-wide convenience API is a thin accessor over a lazily
// initialized singleton" pattern (spec.md §9) used for the binary
// resolution cache.
var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
	defaultEngineErr  error
)

func singleton() (*Engine, error) {
	defaultEngineOnce.Do(func() {
		defaultEngine, defaultEngineErr = NewEngine(config.Default())
	})
	return defaultEngine, defaultEngineErr
}

// OptimizeImage optimizes the image at path using the package-wide default
// Engine. See Engine.Optimize.
func OptimizeImage(ctx context.Context, path string) (*OptimizedPath, error) {
	e, err := singleton()
	if err != nil {
		return nil, err
	}
	return e.Optimize(ctx, path)
}

// OptimizeImageReplace optimizes and replaces the image at path in place
// using the package-wide default Engine. See Engine.OptimizeReplace.
func OptimizeImageReplace(ctx context.Context, path string) (*OptimizedPath, error) {
	e, err := singleton()
	if err != nil {
		return nil, err
	}
	return e.OptimizeReplace(ctx, path)
}

// OptimizeImageData optimizes an in-memory image using the package-wide
// default Engine. See Engine.OptimizeData.
func OptimizeImageData(ctx context.Context, data []byte) ([]byte, error) {
	e, err := singleton()
	if err != nil {
		return nil, err
	}
	return e.OptimizeData(ctx, data)
}

// OptimizeImages batch-optimizes paths using the package-wide default
// Engine. See Engine.OptimizeImages.
func OptimizeImages(ctx context.Context, paths []string, fn BatchFunc) ([]Pair, error) {
	e, err := singleton()
	if err != nil {
		return nil, err
	}
	return e.OptimizeImages(ctx, paths, fn)
}

// OptimizeImagesReplace batch-optimizes-and-replaces paths using the
// package-wide default Engine. See Engine.OptimizeImagesReplace.
func OptimizeImagesReplace(ctx context.Context, paths []string, fn BatchFunc) ([]Pair, error) {
	e, err := singleton()
	if err != nil {
		return nil, err
	}
	return e.OptimizeImagesReplace(ctx, paths, fn)
}

// OptimizeImagesData batch-optimizes in-memory blobs using the package-wide
// default Engine. See Engine.OptimizeImagesData.
func OptimizeImagesData(ctx context.Context, blobs [][]byte, fn BatchDataFunc) ([]DataPair, error) {
	e, err := singleton()
	if err != nil {
		return nil, err
	}
	return e.OptimizeImagesData(ctx, blobs, fn)
}
