package imageoptim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imageoptim-go/imageoptim/config"
	"github.com/imageoptim-go/imageoptim/hooks"
	"github.com/imageoptim-go/imageoptim/internal/handler"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
	"github.com/imageoptim-go/imageoptim/internal/optimerr"
	"github.com/imageoptim-go/imageoptim/workers"
	"github.com/imageoptim-go/imageoptim/workers/vipsthumb"
)

// Engine is a fully wired optimization engine: a registry of worker
// instances resolved against a config, plus the logging and metrics hooks
// that observe every call. The zero value is not usable; construct one with
// NewEngine.
type Engine struct {
	cfg       config.Config
	classes   []workers.Class
	instances *workers.Instances
	logger    hooks.Logger
	hook      hooks.Hook
	metrics   *hooks.InMemoryMetrics
}

// NewEngine builds an Engine from cfg and the given config layers
// (global, local, inline — later layers override earlier ones, per
// workers.ComposeConfig). Binary resolution happens eagerly here: a worker
// whose binary can't be found is skipped with a warning, not a fatal error;
// only configuration errors (unknown worker/option, bad option type) abort
// construction.
func NewEngine(cfg config.Config, layers ...map[string]any) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg := workers.NewBuiltinRegistry()
	classes := reg.Classes()

	composed, err := workers.ComposeConfig(classes, layers...)
	if err != nil {
		return nil, err
	}

	logger := hooks.NewLeveledSlogLogger(cfg.LogLevel)
	metrics := hooks.NewInMemoryMetrics()
	hook := hooks.MultiHook{hooks.NewLoggingHook(logger), hooks.NewMetricsHook(metrics)}

	e := &Engine{cfg: cfg, classes: classes, logger: logger, hook: hook, metrics: metrics}

	warn := func(binSym string, werr error) {
		e.logger.Warn("imageoptim.worker.unresolved", "worker", binSym, "error", werr.Error())
	}

	instances, err := workers.Build(context.Background(), classes, composed, cfg.VendoredBinDir, warn)
	if err != nil {
		return nil, err
	}

	// Fallback: if no PNG-capable binary worker resolved (e.g. none of
	// pngcrush/optipng/advpng/pngquant is installed), fall back to the
	// in-process libvips re-encoder rather than leaving PNG entirely
	// unoptimized.
	if len(instances.ForFormat(imgformat.PNG)) == 0 {
		extra := &workers.Instance{
			Worker:       vipsthumb.New(1000, vipsthumb.Options{}),
			BinSym:       "vipsthumb",
			DiscoveryIdx: len(classes),
		}
		instances = instances.WithExtra(extra)
	}
	e.instances = instances

	return e, nil
}

// Stats returns lightweight cumulative counters for this engine's activity.
func (e *Engine) Stats() hooks.MetricsSnapshot {
	return e.metrics.Snapshot()
}

// Optimize determines path's format, selects the applicable ordered worker
// chain, and runs it through a Handler. It returns nil (and no error) when
// the format is unrecognized, when the binary chain produced no improvement,
// or when the result isn't strictly smaller than the original — matching
// the "OptimizedPath | none" contract. A non-nil error indicates a fatal
// I/O failure or cancellation of ctx, not the absence of an optimization.
func (e *Engine) Optimize(ctx context.Context, path string) (*OptimizedPath, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize", err)
	}
	original := imagepath.New(abs)
	return e.optimizeCore(ctx, original, "")
}

// OptimizeReplace behaves like Optimize but, on success, atomically replaces
// the original file's contents with the optimized bytes, then returns an
// OptimizedPath whose Path is the original location.
func (e *Engine) OptimizeReplace(ctx context.Context, path string) (*OptimizedPath, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize_replace", err)
	}
	original := imagepath.New(abs)

	result, err := e.optimizeCore(ctx, original, "")
	if err != nil || result == nil {
		return result, err
	}

	if err := result.Path.Replace(original); err != nil {
		return nil, err
	}
	if err := result.Path.Remove(); err != nil {
		e.logger.Warn("imageoptim.replace.cleanup_failed", "path", result.Path.String(), "error", err.Error())
	}

	return &OptimizedPath{Path: original, Original: original, OriginalSize: result.OriginalSize}, nil
}

// OptimizeData optimizes an in-memory image: it materializes data into a
// temp file, runs the same pipeline Optimize does, and returns the
// optimized bytes, or nil if no improvement was found.
func (e *Engine) OptimizeData(ctx context.Context, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, optimerr.New(optimerr.CategoryFormat, "engine.optimize_data", optimerr.ErrEmptyInput)
	}
	if _, ok := imgformat.Detect(data); !ok {
		e.logger.Warn("imageoptim.format.unrecognized", "op", "optimize_data")
		return nil, nil
	}

	tmpDir, err := os.MkdirTemp("", "imageoptim-data-*")
	if err != nil {
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize_data.mkdir", err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "input")
	if err := os.WriteFile(inPath, data, 0o644); err != nil {
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize_data.write", err)
	}

	original := imagepath.New(inPath)
	result, err := e.optimizeCore(ctx, original, tmpDir)
	if err != nil || result == nil {
		return nil, err
	}

	out, err := os.ReadFile(result.Path.String())
	if err != nil {
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize_data.read", err)
	}
	return out, nil
}

// optimizeCore is the shared implementation behind Optimize/OptimizeReplace/
// OptimizeData. tempDir, if non-empty, overrides where the Handler
// allocates its scratch temp files (used by OptimizeData so temps live
// alongside its own materialized input rather than in an arbitrary
// directory).
func (e *Engine) optimizeCore(ctx context.Context, original imagepath.Path, tempDir string) (*OptimizedPath, error) {
	start := time.Now()
	e.hook.BeforeImage(ctx, original.String())

	originalSize, err := original.Size()
	if err != nil {
		ev := hooks.ImageEvent{Path: original.String(), Err: err, Duration: time.Since(start)}
		e.hook.AfterImage(ctx, ev)
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize", err)
	}

	format, ok := original.Format()
	if !ok {
		e.logger.Warn("imageoptim.format.unrecognized", "path", original.String())
		e.hook.AfterImage(ctx, hooks.ImageEvent{Path: original.String(), OriginalSize: originalSize, OptimizedSize: -1, Duration: time.Since(start)})
		return nil, nil
	}

	chain := e.instances.ForFormat(format)
	h := handler.New(original, tempDir)

	for _, inst := range chain {
		if err := ctx.Err(); err != nil {
			h.Cleanup()
			e.hook.AfterImage(ctx, hooks.ImageEvent{Path: original.String(), OriginalSize: originalSize, Err: err, Duration: time.Since(start)})
			return nil, optimerr.Wrap(optimerr.CategoryCancelled, "engine.optimize", err)
		}
		e.runWorker(ctx, h, inst)
	}

	defer h.Cleanup()

	result, ok := h.Result()
	if !ok {
		e.hook.AfterImage(ctx, hooks.ImageEvent{Path: original.String(), OriginalSize: originalSize, OptimizedSize: -1, Duration: time.Since(start)})
		return nil, nil
	}

	finalSize, err := result.Size()
	if err != nil {
		e.hook.AfterImage(ctx, hooks.ImageEvent{Path: original.String(), OriginalSize: originalSize, Err: err, Duration: time.Since(start)})
		return nil, optimerr.Wrap(optimerr.CategoryIO, "engine.optimize", err)
	}
	if finalSize >= originalSize {
		e.hook.AfterImage(ctx, hooks.ImageEvent{Path: original.String(), OriginalSize: originalSize, OptimizedSize: -1, Duration: time.Since(start)})
		return nil, nil
	}

	e.hook.AfterImage(ctx, hooks.ImageEvent{Path: original.String(), OriginalSize: originalSize, OptimizedSize: finalSize, Duration: time.Since(start)})
	return &OptimizedPath{Path: result, Original: original, OriginalSize: originalSize}, nil
}

// runWorker drives one handler.Process transition for inst, applying the
// engine's per-worker timeout and retry policy. A worker error or timeout
// is folded into "no improvement" for this step, never aborting the image's
// pipeline.
func (e *Engine) runWorker(ctx context.Context, h *handler.Handler, inst *workers.Instance) {
	step := func(src, dst imagepath.Path) (bool, error) {
		e.hook.BeforeWorker(ctx, inst.BinSym, src.String(), dst.String())
		start := time.Now()

		ok, err := e.invokeWithRetry(ctx, inst, src, dst)

		e.hook.AfterWorker(ctx, hooks.WorkerEvent{
			BinSym:   inst.BinSym,
			Src:      src.String(),
			Dst:      dst.String(),
			Success:  ok,
			Err:      err,
			Duration: time.Since(start),
		})
		return ok, nil
	}

	if err := h.Process(step); err != nil {
		e.logger.Warn("imageoptim.worker.io_error", "worker", inst.BinSym, "error", err.Error())
	}
}

// invokeWithRetry calls inst.Optimize under cfg.JobTimeout, retrying up to
// cfg.MaxRetries times when the per-worker deadline fired, with
// cfg.RetryDelay between attempts, mirroring the teacher's runWithRetry
// loop. Any other worker error ends the attempts at once. A timeout or exhausted retry
// budget surfaces as (false, err); it is never propagated as a fatal error.
func (e *Engine) invokeWithRetry(ctx context.Context, inst *workers.Instance, src, dst imagepath.Path) (bool, error) {
	var (
		ok  bool
		err error
	)
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		var cancel context.CancelFunc
		callCtx := ctx
		if e.cfg.JobTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, e.cfg.JobTimeout)
		}
		ok, err = inst.Optimize(callCtx, src, dst)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return ok, nil
		}
		if callCtx.Err() != nil && ctx.Err() == nil {
			// The per-worker deadline fired, not the caller's context — this
			// is the transient case invokeWithRetry exists for, as opposed
			// to a worker's own internal failure.
			err = optimerr.Transient(optimerr.CategoryWorker, "engine.invoke_worker", err)
		}
		if !optimerr.IsRetryable(err) {
			return false, err
		}
		if attempt < e.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return false, fmt.Errorf("imageoptim: worker %s: %w", inst.BinSym, ctx.Err())
			case <-time.After(e.cfg.RetryDelay):
			}
		}
	}
	return false, err
}
