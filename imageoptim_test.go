package imageoptim

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imageoptim-go/imageoptim/config"
	"github.com/imageoptim-go/imageoptim/hooks"
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
	"github.com/imageoptim-go/imageoptim/internal/imgformat"
	"github.com/imageoptim-go/imageoptim/workers"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// fakeShrinkWorker halves its input's size each call until it reaches
// floor, at which point it reports no further improvement. It stands in
// for a real optimizer binary so these tests never shell out.
type fakeShrinkWorker struct {
	formats map[imgformat.Format]struct{}
	floor   int64
}

func (w *fakeShrinkWorker) ImageFormats() map[imgformat.Format]struct{} { return w.formats }
func (w *fakeShrinkWorker) RunOrder() int                              { return 10 }
func (w *fakeShrinkWorker) UsedBins() []string                         { return []string{"fakeshrink"} }
func (w *fakeShrinkWorker) Options() map[string]any                    { return nil }

func (w *fakeShrinkWorker) Optimize(_ context.Context, src, dst imagepath.Path) (bool, error) {
	data, err := os.ReadFile(src.String())
	if err != nil {
		return false, err
	}
	if int64(len(data)) <= w.floor {
		return false, nil
	}
	half := len(data) / 2
	if int64(half) <= w.floor {
		half = int(w.floor)
	}
	if err := os.WriteFile(dst.String(), data[:half], 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func newTestEngine(floor int64) *Engine {
	inst := &workers.Instance{
		Worker:       &fakeShrinkWorker{formats: map[imgformat.Format]struct{}{imgformat.PNG: {}}, floor: floor},
		BinSym:       "fakeshrink",
		DiscoveryIdx: 0,
	}
	instances := (&workers.Instances{}).WithExtra(inst)
	return &Engine{
		cfg:       config.Config{WorkerCount: 2, JobTimeout: 5 * time.Second, QueueSize: 1, LogLevel: "info"},
		instances: instances,
		logger:    hooks.NopLogger{},
		hook:      hooks.NopHook{},
		metrics:   hooks.NewInMemoryMetrics(),
	}
}

// makeFakePNG writes a file of exactly size bytes starting with the PNG
// signature, padded with zero bytes.
func makeFakePNG(t *testing.T, dir, name string, size int) string {
	t.Helper()
	data := make([]byte, size)
	copy(data, pngSignature)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fake png: %v", err)
	}
	return path
}

func TestOptimizeShrinksAndReturnsOptimizedPath(t *testing.T) {
	dir := t.TempDir()
	path := makeFakePNG(t, dir, "a.png", 128)
	e := newTestEngine(4)

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read original: %v", err)
	}

	result, err := e.Optimize(context.Background(), path)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result == nil {
		t.Fatal("expected an OptimizedPath, got none")
	}
	size, err := result.Size()
	if err != nil {
		t.Fatalf("result.Size: %v", err)
	}
	if size >= result.OriginalSize {
		t.Errorf("size %d not < original size %d", size, result.OriginalSize)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read original after call: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("original file's bytes changed during Optimize (non-destructive read path violated)")
	}
}

func TestOptimizeUnsupportedInputReturnsNoneNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-image.txt")
	if err := os.WriteFile(path, []byte("hello, this is not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := newTestEngine(4)

	result, err := e.Optimize(context.Background(), path)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result != nil {
		t.Fatal("expected none for unsupported input")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no temp files left behind)", len(entries))
	}
}

func TestOptimizeBrokenMagicReturnsNone(t *testing.T) {
	dir := t.TempDir()
	// Correct PNG signature, but far too short to be a parseable header.
	path := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(path, pngSignature, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e := newTestEngine(4)

	result, err := e.Optimize(context.Background(), path)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if result != nil {
		t.Fatal("expected none for a broken-magic file")
	}

	var warnCount int
	e.logger = countingWarnLogger{count: &warnCount}
	if _, err := e.Optimize(context.Background(), path); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if warnCount != 1 {
		t.Errorf("got %d warnings for a broken-magic file, want exactly 1", warnCount)
	}
}

type countingWarnLogger struct {
	count *int
}

func (countingWarnLogger) Debug(string, ...any) {}
func (countingWarnLogger) Info(string, ...any)  {}
func (l countingWarnLogger) Warn(string, ...any) {
	*l.count++
}
func (countingWarnLogger) Error(string, ...any) {}

func TestOptimizeDataIdempotence(t *testing.T) {
	// floor == half of the input size: the first call shrinks input to
	// exactly the floor, and the floor itself can no longer be shrunk.
	e := newTestEngine(32)
	input := make([]byte, 64)
	copy(input, pngSignature)

	first, err := e.OptimizeData(context.Background(), input)
	if err != nil {
		t.Fatalf("first OptimizeData: %v", err)
	}
	if first == nil {
		t.Fatal("expected the first call to improve a suboptimal input")
	}

	second, err := e.OptimizeData(context.Background(), first)
	if err != nil {
		t.Fatalf("second OptimizeData: %v", err)
	}
	if second != nil {
		t.Error("expected the second call on already-optimized bytes to return none")
	}
}

func TestOptimizeReplaceAtomicity(t *testing.T) {
	dir := t.TempDir()
	path := makeFakePNG(t, dir, "b.png", 128)
	e := newTestEngine(4)

	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	result, err := e.OptimizeReplace(context.Background(), path)
	if err != nil {
		t.Fatalf("OptimizeReplace: %v", err)
	}
	if result == nil {
		t.Fatal("expected an OptimizedPath")
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat after replace: %v", err)
	}
	if after.Size() >= before.Size() {
		t.Errorf("replaced file size %d not < original size %d", after.Size(), before.Size())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after replace, want 1 (no leftover temp files)", len(entries))
	}
}

func TestOptimizeImagesPreservesInputOrderAndInvokesCallback(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		makeFakePNG(t, dir, "1.png", 64),
		makeFakePNG(t, dir, "2.png", 96),
		makeFakePNG(t, dir, "3.png", 128),
	}
	e := newTestEngine(4)

	var calls atomic.Int64
	results, err := e.OptimizeImages(context.Background(), paths, func(src string, result *OptimizedPath, err error) {
		calls.Add(1)
	})
	if err != nil {
		t.Fatalf("OptimizeImages: %v", err)
	}
	if len(results) != len(paths) {
		t.Fatalf("got %d results, want %d", len(results), len(paths))
	}
	for i, p := range paths {
		if results[i].Src != p {
			t.Errorf("position %d: Src = %q, want %q (input order not preserved)", i, results[i].Src, p)
		}
		if results[i].Result == nil {
			t.Errorf("position %d: expected a non-none result", i)
		}
	}
	if got := calls.Load(); got != int64(len(paths)) {
		t.Errorf("callback invoked %d times, want %d", got, len(paths))
	}
}

// TestRunBoundedRespectsPoolSize checks that runBounded never lets more
// than WorkerCount goroutines call work concurrently, regardless of how
// small QueueSize is — QueueSize only bounds how many items are queued
// ahead of the running pool, not the pool size itself.
func TestRunBoundedRespectsPoolSize(t *testing.T) {
	e := &Engine{cfg: config.Config{WorkerCount: 2, QueueSize: 1}}

	var running, maxRunning atomic.Int64
	e.runBounded(8, func(int) {
		cur := running.Add(1)
		for {
			old := maxRunning.Load()
			if cur <= old || maxRunning.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
	})

	if got := maxRunning.Load(); got > 2 {
		t.Errorf("max concurrent work calls = %d, want <= 2 (WorkerCount)", got)
	}
}

// TestRunBoundedCompletesAllItemsRegardlessOfQueueSize checks that a
// QueueSize smaller than the batch size (forcing the feeder to block
// mid-batch) still delivers every item exactly once.
func TestRunBoundedCompletesAllItemsRegardlessOfQueueSize(t *testing.T) {
	e := &Engine{cfg: config.Config{WorkerCount: 3, QueueSize: 1}}

	const n = 20
	seen := make([]int32, n)
	e.runBounded(n, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})

	for i, count := range seen {
		if count != 1 {
			t.Errorf("item %d processed %d times, want exactly 1", i, count)
		}
	}
}
