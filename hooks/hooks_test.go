package hooks

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type recordedLog struct {
	level string
	msg   string
}

type fakeLogger struct {
	logs []recordedLog
}

func (f *fakeLogger) Debug(msg string, _ ...any) { f.logs = append(f.logs, recordedLog{"debug", msg}) }
func (f *fakeLogger) Info(msg string, _ ...any)  { f.logs = append(f.logs, recordedLog{"info", msg}) }
func (f *fakeLogger) Warn(msg string, _ ...any)  { f.logs = append(f.logs, recordedLog{"warn", msg}) }
func (f *fakeLogger) Error(msg string, _ ...any) { f.logs = append(f.logs, recordedLog{"error", msg}) }

func (f *fakeLogger) last() recordedLog {
	if len(f.logs) == 0 {
		return recordedLog{}
	}
	return f.logs[len(f.logs)-1]
}

func TestLoggingHookAfterWorker(t *testing.T) {
	log := &fakeLogger{}
	h := NewLoggingHook(log)

	h.AfterWorker(context.Background(), WorkerEvent{BinSym: "jpegoptim", Success: true, Duration: time.Millisecond})
	if got := log.last(); got.level != "debug" {
		t.Errorf("success event logged at %q, want debug", got.level)
	}

	h.AfterWorker(context.Background(), WorkerEvent{BinSym: "jpegoptim", Err: errors.New("boom")})
	if got := log.last(); got.level != "warn" {
		t.Errorf("error event logged at %q, want warn", got.level)
	}
}

func TestLoggingHookAfterImage(t *testing.T) {
	log := &fakeLogger{}
	h := NewLoggingHook(log)

	h.AfterImage(context.Background(), ImageEvent{Path: "a.jpg", OriginalSize: 100, OptimizedSize: 80})
	if got := log.last(); got.level != "info" {
		t.Errorf("optimized image logged at %q, want info", got.level)
	}

	h.AfterImage(context.Background(), ImageEvent{Path: "a.jpg", OriginalSize: 100, OptimizedSize: -1})
	if got := log.last(); got.level != "debug" {
		t.Errorf("unchanged image logged at %q, want debug", got.level)
	}

	h.AfterImage(context.Background(), ImageEvent{Path: "a.jpg", Err: errors.New("boom")})
	if got := log.last(); got.level != "error" {
		t.Errorf("failed image logged at %q, want error", got.level)
	}
}

func TestMetricsHookWorkerCounters(t *testing.T) {
	m := NewInMemoryMetrics()
	h := NewMetricsHook(m)

	h.AfterWorker(context.Background(), WorkerEvent{BinSym: "jpegoptim", Success: true})
	h.AfterWorker(context.Background(), WorkerEvent{BinSym: "jpegoptim", Success: false})
	h.AfterWorker(context.Background(), WorkerEvent{BinSym: "pngquant", Success: true})

	snap := m.Snapshot()
	if snap.WorkerCalls["jpegoptim"] != 2 {
		t.Errorf("jpegoptim calls = %d, want 2", snap.WorkerCalls["jpegoptim"])
	}
	if snap.WorkerSuccesses["jpegoptim"] != 1 {
		t.Errorf("jpegoptim successes = %d, want 1", snap.WorkerSuccesses["jpegoptim"])
	}
	if snap.WorkerFailures["jpegoptim"] != 1 {
		t.Errorf("jpegoptim failures = %d, want 1", snap.WorkerFailures["jpegoptim"])
	}
	if snap.WorkerCalls["pngquant"] != 1 || snap.WorkerSuccesses["pngquant"] != 1 {
		t.Errorf("pngquant counters = %+v, want 1 call 1 success", snap)
	}
}

func TestMetricsHookImageCounters(t *testing.T) {
	m := NewInMemoryMetrics()
	h := NewMetricsHook(m)

	h.AfterImage(context.Background(), ImageEvent{OriginalSize: 1000, OptimizedSize: 600})
	h.AfterImage(context.Background(), ImageEvent{OriginalSize: 500, OptimizedSize: -1})
	h.AfterImage(context.Background(), ImageEvent{Err: errors.New("boom")})

	snap := m.Snapshot()
	if snap.ImagesProcessed != 3 {
		t.Errorf("ImagesProcessed = %d, want 3", snap.ImagesProcessed)
	}
	if snap.ImagesOptimized != 1 {
		t.Errorf("ImagesOptimized = %d, want 1", snap.ImagesOptimized)
	}
	if snap.ImagesFailed != 1 {
		t.Errorf("ImagesFailed = %d, want 1", snap.ImagesFailed)
	}
	if snap.BytesSaved != 400 {
		t.Errorf("BytesSaved = %d, want 400", snap.BytesSaved)
	}
}

func TestMultiHookFansOutInOrder(t *testing.T) {
	var order []string
	makeHook := func(name string) Hook {
		return recordingHook{name: name, order: &order}
	}
	multi := MultiHook{makeHook("a"), makeHook("b")}

	multi.AfterImage(context.Background(), ImageEvent{})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("fan-out order = %v, want [a b]", order)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLeveledSlogLoggerFiltersByLevel(t *testing.T) {
	// NewLeveledSlogLogger must actually honor the configured level rather
	// than always wrapping slog.Default() (which NewSlogLogger(nil) does):
	// records at the configured level are enabled, records one step below
	// it are filtered out.
	ctx := context.Background()
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		l := NewLeveledSlogLogger(level)
		if l == nil {
			t.Fatalf("NewLeveledSlogLogger(%q) returned nil", level)
		}
		want := LevelFromString(level)
		if !l.log.Enabled(ctx, want) {
			t.Errorf("NewLeveledSlogLogger(%q): level %v disabled, want enabled", level, want)
		}
		if l.log.Enabled(ctx, want-1) {
			t.Errorf("NewLeveledSlogLogger(%q): level %v enabled, want filtered out", level, want-1)
		}
		l.Debug("probe")
		l.Info("probe")
		l.Warn("probe")
		l.Error("probe")
	}
}

type recordingHook struct {
	NopHook
	name  string
	order *[]string
}

func (r recordingHook) AfterImage(context.Context, ImageEvent) {
	*r.order = append(*r.order, r.name)
}
