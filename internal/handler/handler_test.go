package handler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/imageoptim-go/imageoptim/internal/imagepath"
)

// observedPair records which logical slot (O, A, B) played src and dst on
// one Process call, so the test can assert against the exact transition
// sequence independent of the actual temp file names chosen by the OS.
type observedPair struct {
	src, dst string
}

func newOriginal(t *testing.T) imagepath.Path {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "photo.png")
	if err := os.WriteFile(p, []byte("original bytes"), 0o644); err != nil {
		t.Fatalf("seed original file: %v", err)
	}
	return imagepath.New(p)
}

// TestProcessTransitionSequence exercises the double-buffer state machine
// with the exact outcome sequence F,T,F,T,T,T and checks that the src/dst
// pairs presented to the worker step match (O,A),(O,A),(A,B),(A,B),(B,A),
// (A,B), that the final result is the path used as B, and that cleanup
// unlinks A (and only A) exactly once.
func TestProcessTransitionSequence(t *testing.T) {
	original := newOriginal(t)
	h := New(original, "")

	outcomes := []bool{false, true, false, true, true, true}
	wantPairs := []observedPair{
		{"O", "A"},
		{"O", "A"},
		{"A", "B"},
		{"A", "B"},
		{"B", "A"},
		{"A", "B"},
	}

	slot := map[string]string{original.String(): "O"}
	nextLabel := byte('A')
	labelFor := func(p imagepath.Path) string {
		if l, ok := slot[p.String()]; ok {
			return l
		}
		l := string(nextLabel)
		slot[p.String()] = l
		nextLabel++
		return l
	}

	var got []observedPair
	for i, ok := range outcomes {
		outcome := ok
		err := h.Process(func(src, dst imagepath.Path) (bool, error) {
			// Touch dst so a subsequent Copy/inspection would see real bytes;
			// not required by the state machine itself but mirrors a real
			// worker writing its output file.
			if err := os.WriteFile(dst.String(), []byte("pass"), 0o644); err != nil {
				t.Fatalf("call %d: write dst: %v", i, err)
			}
			got = append(got, observedPair{labelFor(src), labelFor(dst)})
			return outcome, nil
		})
		if err != nil {
			t.Fatalf("call %d: Process returned error: %v", i, err)
		}
	}

	if len(got) != len(wantPairs) {
		t.Fatalf("got %d pairs, want %d", len(got), len(wantPairs))
	}
	for i := range wantPairs {
		if got[i] != wantPairs[i] {
			t.Errorf("call %d: pair = %v, want %v", i, got[i], wantPairs[i])
		}
	}

	result, ok := h.Result()
	if !ok {
		t.Fatal("expected a result after the final successful call")
	}
	if labelFor(result) != "B" {
		t.Errorf("final result labeled %q, want B", labelFor(result))
	}

	// Find the path labeled A for the removal check below, before Cleanup
	// forgets the owned list.
	var pathA string
	for p, l := range slot {
		if l == "A" {
			pathA = p
		}
	}

	if err := h.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(pathA); !os.IsNotExist(err) {
		t.Errorf("expected A (%s) to be removed by Cleanup, stat err = %v", pathA, err)
	}
	if _, err := os.Stat(result.String()); err != nil {
		t.Errorf("expected result %s to survive Cleanup, got stat err: %v", result.String(), err)
	}

	// Cleanup must be idempotent.
	if err := h.Cleanup(); err != nil {
		t.Errorf("second Cleanup call returned error: %v", err)
	}
}

// TestProcessAllFailures verifies that a Handler which never succeeds
// reports no result and that Cleanup removes the single allocated temp
// file.
func TestProcessAllFailures(t *testing.T) {
	original := newOriginal(t)
	h := New(original, "")

	var dstPath string
	for i := 0; i < 3; i++ {
		err := h.Process(func(src, dst imagepath.Path) (bool, error) {
			dstPath = dst.String()
			if !src.Equal(original) {
				t.Errorf("call %d: src = %s, want original", i, src.String())
			}
			return false, nil
		})
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if _, ok := h.Result(); ok {
		t.Fatal("expected no result when every step fails")
	}

	if err := h.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dstPath); !os.IsNotExist(err) {
		t.Errorf("expected scratch dst %s to be removed by Cleanup", dstPath)
	}
	if _, err := os.Stat(original.String()); err != nil {
		t.Errorf("original must survive: %v", err)
	}
}

// TestProcessFirstCallSucceeds checks the simplest possible path: a single
// successful step promotes dst straight to result.
func TestProcessFirstCallSucceeds(t *testing.T) {
	original := newOriginal(t)
	h := New(original, "")

	var dstPath string
	err := h.Process(func(src, dst imagepath.Path) (bool, error) {
		dstPath = dst.String()
		if !src.Equal(original) {
			t.Errorf("src = %s, want original", src.String())
		}
		// A successful worker step writes its output to dst.
		if err := os.WriteFile(dst.String(), []byte("pass"), 0o644); err != nil {
			t.Fatalf("write dst: %v", err)
		}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	result, ok := h.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	if result.String() != dstPath {
		t.Errorf("result = %s, want %s", result.String(), dstPath)
	}

	if err := h.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(result.String()); err != nil {
		t.Errorf("result must survive cleanup: %v", err)
	}
}
