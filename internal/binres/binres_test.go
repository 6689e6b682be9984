package binres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/imageoptim-go/imageoptim/internal/optimerr"
)

// fakeBinary writes a tiny shell script as name into dir and makes it
// executable, so tests can resolve and "version-probe" a real executable
// without depending on any optimizer binary being installed.
func fakeBinary(t *testing.T, dir, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binaries are POSIX shell scripts")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func withPath(t *testing.T, dir string) {
	t.Helper()
	old := os.Getenv("PATH")
	os.Setenv("PATH", dir+string(os.PathListSeparator)+old)
	t.Cleanup(func() { os.Setenv("PATH", old) })
}

func parseSimpleVersion(out []byte) (string, error) {
	s := string(out)
	var v string
	if _, err := fmt.Sscanf(s, "version %s", &v); err != nil {
		return "", fmt.Errorf("unparseable version output %q: %w", s, err)
	}
	return v, nil
}

func TestResolveNotFound(t *testing.T) {
	Reset()
	_, err := Resolve(context.Background(), Spec{Name: "imageoptim-go-test-does-not-exist"})
	if !errors.Is(err, optimerr.ErrBinaryNotFound) {
		t.Fatalf("err = %v, want ErrBinaryNotFound", err)
	}
}

func TestResolveMemoizes(t *testing.T) {
	Reset()
	dir := t.TempDir()
	fakeBinary(t, dir, "imageoptim-fake-tool", "echo version 2.0.0")
	withPath(t, dir)

	spec := Spec{
		Name:         "imageoptim-fake-tool",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseSimpleVersion,
		MinVersion:   "1.0.0",
	}

	first, err := Resolve(context.Background(), spec)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.Version != "2.0.0" {
		t.Fatalf("version = %q, want 2.0.0", first.Version)
	}

	// Remove the binary; a memoized resolver must not re-probe and fail.
	os.Remove(filepath.Join(dir, "imageoptim-fake-tool"))

	second, err := Resolve(context.Background(), spec)
	if err != nil {
		t.Fatalf("second Resolve (expected cache hit): %v", err)
	}
	if second != first {
		t.Errorf("second resolve = %+v, want identical cached %+v", second, first)
	}

	Reset()
	if _, err := Resolve(context.Background(), spec); !errors.Is(err, optimerr.ErrBinaryNotFound) {
		t.Errorf("after Reset, expected ErrBinaryNotFound now the binary is gone, got %v", err)
	}
}

func TestResolveBadVersion(t *testing.T) {
	Reset()
	dir := t.TempDir()
	fakeBinary(t, dir, "imageoptim-fake-old", "echo version 0.5.0")
	withPath(t, dir)

	_, err := Resolve(context.Background(), Spec{
		Name:         "imageoptim-fake-old",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseSimpleVersion,
		MinVersion:   "1.0.0",
	})
	if !errors.Is(err, optimerr.ErrBadVersion) {
		t.Fatalf("err = %v, want ErrBadVersion", err)
	}
}

func TestResolveKnownBroken(t *testing.T) {
	Reset()
	dir := t.TempDir()
	fakeBinary(t, dir, "imageoptim-fake-broken", "echo version 3.1.0")
	withPath(t, dir)

	_, err := Resolve(context.Background(), Spec{
		Name:         "imageoptim-fake-broken",
		VersionArgs:  []string{"--version"},
		ParseVersion: parseSimpleVersion,
		Broken:       func(v string) bool { return v == "3.1.0" },
	})
	if !errors.Is(err, optimerr.ErrBadVersion) {
		t.Fatalf("err = %v, want ErrBadVersion", err)
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", 0},
		{"1.9.0", "1.10.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.2.3", "1.2", 1},
	}
	for _, c := range cases {
		if got := compareVersions(c.a, c.b); got != c.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
