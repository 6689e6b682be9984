// Package hooks provides the engine's observability seams: a minimal
// Logger interface, a Hook interface for before/after events at the
// per-worker and per-image granularity, and ready-made slog- and
// in-memory-metrics-backed implementations.
package hooks

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// Logger is the minimal structured-logging surface the engine depends on.
// Implementations receive alternating key/value pairs as fields, matching
// log/slog's convention.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// SlogLogger wraps the standard library slog.Logger to satisfy Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog. A nil l wraps slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{log: l}
}

func (s *SlogLogger) Debug(msg string, fields ...any) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...any) { s.log.Error(msg, fields...) }

// LevelFromString maps a config.Config.LogLevel name ("debug", "info",
// "warn", "error") to its slog.Level, defaulting to slog.LevelInfo for ""
// or any other unrecognized value.
func LevelFromString(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLeveledSlogLogger builds a SlogLogger writing text-formatted records to
// os.Stderr, filtered at level (see LevelFromString). This is what actually
// makes config.Config.LogLevel take effect, as opposed to NewSlogLogger(nil)
// which always wraps slog.Default() regardless of the configured level.
func NewLeveledSlogLogger(level string) *SlogLogger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LevelFromString(level)})
	return &SlogLogger{log: slog.New(h)}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

// ── Hook events ────────────────────────────────────────────────────────────────

// WorkerEvent describes one handler.Process call, reported after it
// returns (successful or not).
type WorkerEvent struct {
	BinSym   string
	Src, Dst string
	Success  bool
	Err      error
	Duration time.Duration
}

// ImageEvent describes one optimize(path) call, reported after it returns.
// OptimizedSize is -1 when no optimization was produced (none).
type ImageEvent struct {
	Path          string
	OriginalSize  int64
	OptimizedSize int64
	Err           error
	Duration      time.Duration
}

// Hook observes engine activity without influencing it. Implementations
// must return promptly; the engine calls hooks synchronously on the
// goroutine processing that image.
type Hook interface {
	BeforeWorker(ctx context.Context, binSym, src, dst string)
	AfterWorker(ctx context.Context, ev WorkerEvent)
	BeforeImage(ctx context.Context, path string)
	AfterImage(ctx context.Context, ev ImageEvent)
}

// NopHook implements Hook with no-ops. Embed it to implement only the
// events a given Hook cares about.
type NopHook struct{}

func (NopHook) BeforeWorker(context.Context, string, string, string) {}
func (NopHook) AfterWorker(context.Context, WorkerEvent)             {}
func (NopHook) BeforeImage(context.Context, string)                  {}
func (NopHook) AfterImage(context.Context, ImageEvent)                {}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs each worker and image transition: Debug on a worker step
// that completed (improved or not), Warn on a worker step that returned an
// error; Info on an optimized image, Debug on an unchanged one, Error on an
// image-level failure.
type LoggingHook struct {
	NopHook
	logger Logger
}

// NewLoggingHook creates a LoggingHook backed by logger.
func NewLoggingHook(logger Logger) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) AfterWorker(_ context.Context, ev WorkerEvent) {
	if ev.Err != nil {
		h.logger.Warn("imageoptim.worker.failed",
			"worker", ev.BinSym, "src", ev.Src, "error", ev.Err.Error(), "duration_ms", ev.Duration.Milliseconds())
		return
	}
	h.logger.Debug("imageoptim.worker.done",
		"worker", ev.BinSym, "success", ev.Success, "duration_ms", ev.Duration.Milliseconds())
}

func (h *LoggingHook) AfterImage(_ context.Context, ev ImageEvent) {
	if ev.Err != nil {
		h.logger.Error("imageoptim.image.failed", "path", ev.Path, "error", ev.Err.Error(), "duration_ms", ev.Duration.Milliseconds())
		return
	}
	if ev.OptimizedSize < 0 {
		h.logger.Debug("imageoptim.image.unchanged", "path", ev.Path, "original_bytes", ev.OriginalSize, "duration_ms", ev.Duration.Milliseconds())
		return
	}
	h.logger.Info("imageoptim.image.optimized", "path", ev.Path,
		"original_bytes", ev.OriginalSize, "optimized_bytes", ev.OptimizedSize,
		"saved_bytes", ev.OriginalSize-ev.OptimizedSize, "duration_ms", ev.Duration.Milliseconds())
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// MetricsSnapshot is an immutable point-in-time copy of InMemoryMetrics.
type MetricsSnapshot struct {
	ImagesProcessed int64
	ImagesOptimized int64
	ImagesFailed    int64
	BytesSaved      int64
	WorkerCalls     map[string]int64
	WorkerSuccesses map[string]int64
	WorkerFailures  map[string]int64
}

// InMemoryMetrics accumulates engine activity for tests and diagnostics.
// Safe for concurrent use.
type InMemoryMetrics struct {
	imagesProcessed int64
	imagesOptimized int64
	imagesFailed    int64
	bytesSaved      int64

	mu              sync.Mutex
	workerCalls     map[string]int64
	workerSuccesses map[string]int64
	workerFailures  map[string]int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		workerCalls:     make(map[string]int64),
		workerSuccesses: make(map[string]int64),
		workerFailures:  make(map[string]int64),
	}
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		ImagesProcessed: atomic.LoadInt64(&m.imagesProcessed),
		ImagesOptimized: atomic.LoadInt64(&m.imagesOptimized),
		ImagesFailed:    atomic.LoadInt64(&m.imagesFailed),
		BytesSaved:      atomic.LoadInt64(&m.bytesSaved),
		WorkerCalls:     make(map[string]int64, len(m.workerCalls)),
		WorkerSuccesses: make(map[string]int64, len(m.workerSuccesses)),
		WorkerFailures:  make(map[string]int64, len(m.workerFailures)),
	}
	for k, v := range m.workerCalls {
		snap.WorkerCalls[k] = v
	}
	for k, v := range m.workerSuccesses {
		snap.WorkerSuccesses[k] = v
	}
	for k, v := range m.workerFailures {
		snap.WorkerFailures[k] = v
	}
	return snap
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds engine events into an InMemoryMetrics.
type MetricsHook struct {
	NopHook
	m *InMemoryMetrics
}

// NewMetricsHook creates a MetricsHook backed by m.
func NewMetricsHook(m *InMemoryMetrics) *MetricsHook {
	return &MetricsHook{m: m}
}

func (h *MetricsHook) AfterWorker(_ context.Context, ev WorkerEvent) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	h.m.workerCalls[ev.BinSym]++
	if ev.Success {
		h.m.workerSuccesses[ev.BinSym]++
	} else {
		h.m.workerFailures[ev.BinSym]++
	}
}

func (h *MetricsHook) AfterImage(_ context.Context, ev ImageEvent) {
	atomic.AddInt64(&h.m.imagesProcessed, 1)
	if ev.Err != nil {
		atomic.AddInt64(&h.m.imagesFailed, 1)
		return
	}
	if ev.OptimizedSize >= 0 {
		atomic.AddInt64(&h.m.imagesOptimized, 1)
		atomic.AddInt64(&h.m.bytesSaved, ev.OriginalSize-ev.OptimizedSize)
	}
}

// MultiHook fans one set of events out to several hooks, in order.
type MultiHook []Hook

func (m MultiHook) BeforeWorker(ctx context.Context, binSym, src, dst string) {
	for _, h := range m {
		h.BeforeWorker(ctx, binSym, src, dst)
	}
}
func (m MultiHook) AfterWorker(ctx context.Context, ev WorkerEvent) {
	for _, h := range m {
		h.AfterWorker(ctx, ev)
	}
}
func (m MultiHook) BeforeImage(ctx context.Context, path string) {
	for _, h := range m {
		h.BeforeImage(ctx, path)
	}
}
func (m MultiHook) AfterImage(ctx context.Context, ev ImageEvent) {
	for _, h := range m {
		h.AfterImage(ctx, ev)
	}
}
