// Package binres resolves named worker binaries on PATH (or a vendored bin
// directory), probes their version, and memoizes the result for the life of
// the process. Locating and version-probing an external binary is the one
// genuinely slow, syscall-heavy step in constructing a worker, so results
// are cached per binary name rather than re-probed on every construction.
package binres

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/imageoptim-go/imageoptim/internal/optimerr"
)

// Method records how a binary was located.
type Method string

const (
	MethodPath     Method = "path"
	MethodVendored Method = "vendored_bin_dir"
)

// Bin describes a resolved binary: where it lives, its parsed version (if a
// version probe was configured), and how it was found.
type Bin struct {
	Name    string
	Path    string
	Version string
	Method  Method
}

// Spec describes how to locate and validate one named binary. VersionArgs
// and ParseVersion are both optional; leave them nil to skip version
// probing entirely (some workers, e.g. svgo shims, don't gate on version).
type Spec struct {
	// Name is the executable name looked up via PATH, e.g. "jpegoptim".
	Name string
	// VendoredDir, if non-empty, is checked for Name before falling back
	// to PATH.
	VendoredDir string
	// VersionArgs invokes Name with these arguments to print its version,
	// e.g. []string{"--version"}.
	VersionArgs []string
	// ParseVersion extracts a dotted version string from the combined
	// stdout+stderr of the version invocation.
	ParseVersion func(output []byte) (string, error)
	// MinVersion, if non-empty, is the minimum acceptable dotted version;
	// anything lower resolves as BadVersion.
	MinVersion string
	// Broken, if non-nil, flags specific versions as unusable regardless
	// of MinVersion (known-bad releases).
	Broken func(version string) bool
}

type cacheEntry struct {
	bin Bin
	err error
}

var (
	mu    sync.Mutex
	cache = map[string]cacheEntry{}
)

// Resolve locates and validates the binary described by spec, memoizing the
// outcome (success or failure) under spec.Name for the process's lifetime.
func Resolve(ctx context.Context, spec Spec) (Bin, error) {
	mu.Lock()
	if entry, ok := cache[spec.Name]; ok {
		mu.Unlock()
		return entry.bin, entry.err
	}
	mu.Unlock()

	bin, err := resolveUncached(ctx, spec)

	mu.Lock()
	cache[spec.Name] = cacheEntry{bin: bin, err: err}
	mu.Unlock()

	return bin, err
}

// Reset clears the memoized cache. Intended for tests that need to simulate
// a fresh process (e.g. after modifying PATH or a vendored bin directory).
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cache = map[string]cacheEntry{}
}

func resolveUncached(ctx context.Context, spec Spec) (Bin, error) {
	path, method, err := locate(spec.Name, spec.VendoredDir)
	if err != nil {
		return Bin{}, fmt.Errorf("imageoptim: resolve %q: %w", spec.Name, optimerr.ErrBinaryNotFound)
	}

	bin := Bin{Name: spec.Name, Path: path, Method: method}

	if spec.VersionArgs == nil || spec.ParseVersion == nil {
		return bin, nil
	}

	version, err := probeVersion(ctx, path, spec.VersionArgs, spec.ParseVersion)
	if err != nil {
		return Bin{}, optimerr.Wrap(optimerr.CategoryBadVersion, "binres.probe_version", err)
	}
	bin.Version = version

	if spec.Broken != nil && spec.Broken(version) {
		return Bin{}, fmt.Errorf("imageoptim: resolve %q: version %s is known-broken: %w", spec.Name, version, optimerr.ErrBadVersion)
	}
	if spec.MinVersion != "" && compareVersions(version, spec.MinVersion) < 0 {
		return Bin{}, fmt.Errorf("imageoptim: resolve %q: version %s below minimum %s: %w", spec.Name, version, spec.MinVersion, optimerr.ErrBadVersion)
	}

	return bin, nil
}

func locate(name, vendoredDir string) (string, Method, error) {
	if vendoredDir != "" {
		candidate := filepath.Join(vendoredDir, name)
		if p, err := exec.LookPath(candidate); err == nil {
			return p, MethodVendored, nil
		}
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", "", err
	}
	return p, MethodPath, nil
}

// probeVersion invokes path with versionArgs and parses its output. Many
// optimizer binaries (jpegtran, advpng) exit nonzero on --version, so a
// nonzero exit is only an error if it also produced no parseable output.
func probeVersion(ctx context.Context, path string, versionArgs []string, parse func([]byte) (string, error)) (string, error) {
	// #nosec G204 -- path comes from exec.LookPath against a fixed, known binary name, not user input.
	cmd := exec.CommandContext(ctx, path, versionArgs...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()

	version, parseErr := parse(out.Bytes())
	if parseErr != nil {
		if runErr != nil {
			return "", fmt.Errorf("run %s %s: %w", path, strings.Join(versionArgs, " "), runErr)
		}
		return "", parseErr
	}
	return version, nil
}

// compareVersions compares two dotted-numeric version strings, returning
// -1, 0, or 1. Non-numeric or missing components compare as 0, so "1.2"
// and "1.2.0" are equal.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		av, bv := componentAt(as, i), componentAt(bs, i)
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func componentAt(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return v
}
