// Package imagepath provides the filesystem primitives the optimization
// engine needs: collision-free temp file allocation, atomic replace, and
// attribute-preserving copy, plus a lazily-cached format probe per path.
package imagepath

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/imageoptim-go/imageoptim/internal/imgformat"
	"github.com/imageoptim-go/imageoptim/internal/optimerr"
)

// Path is an immutable, comparable reference to an absolute filesystem
// path. The underlying file's contents may change over the Path's
// lifetime; Path itself never does, so it is safe to copy, store in a
// slice, and compare with Equal.
type Path struct {
	abs   string
	cache *formatCache
}

// formatCache holds the lazily-computed, memoized format probe for a path.
// It is heap-allocated once per New so that copies of Path (handler.go
// passes Path by value freely) share one cache instead of racing to fill
// independent copies of a sync.Once.
type formatCache struct {
	once   sync.Once
	format imgformat.Format
	ok     bool
}

// New wraps an absolute path. Callers are responsible for passing an
// absolute path; this package does not resolve relative ones.
func New(abs string) Path {
	return Path{abs: abs, cache: &formatCache{}}
}

// String returns the absolute path.
func (p Path) String() string { return p.abs }

// Equal reports whether p and other refer to the same absolute path.
func (p Path) Equal(other Path) bool { return p.abs == other.abs }

// IsZero reports whether p is the zero Path (never allocated via New).
func (p Path) IsZero() bool { return p.abs == "" && p.cache == nil }

// Dir returns the containing directory.
func (p Path) Dir() string { return filepath.Dir(p.abs) }

// Ext returns the path's extension, including the leading dot.
func (p Path) Ext() string { return filepath.Ext(p.abs) }

// Size returns the current size in bytes of the underlying file.
func (p Path) Size() (int64, error) {
	info, err := os.Stat(p.abs)
	if err != nil {
		return 0, optimerr.Wrap(optimerr.CategoryIO, "imagepath.size", err)
	}
	return info.Size(), nil
}

// Format lazily detects and caches the image format of the underlying file.
// It never errors: an unreadable or unrecognized file simply reports ok=false.
func (p Path) Format() (imgformat.Format, bool) {
	c := p.cache
	c.once.Do(func() {
		f, ok, err := imgformat.DetectFile(p.abs)
		if err == nil {
			c.format, c.ok = f, ok
		}
	})
	return c.format, c.ok
}

// TempPath returns a fresh, not-yet-existing path with the same extension as
// p. dir, if non-empty, overrides the default sibling-of-p directory.
// Allocation uses os.CreateTemp's random suffix, which guarantees
// collision-freedom under concurrent callers without coordination.
func (p Path) TempPath(dir string) (Path, error) {
	if dir == "" {
		dir = p.Dir()
	}
	pattern := "." + trimLeadingDot(filepath.Base(p.abs)) + ".imageoptim-*" + p.Ext()
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return Path{}, optimerr.Wrap(optimerr.CategoryIO, "imagepath.temp_path", err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return Path{}, optimerr.Wrap(optimerr.CategoryIO, "imagepath.temp_path", err)
	}
	return New(name), nil
}

func trimLeadingDot(name string) string {
	for len(name) > 0 && name[0] == '.' {
		name = name[1:]
	}
	if name == "" {
		return "tmp"
	}
	return name
}

// Remove unlinks the underlying file. Missing files are not an error.
func (p Path) Remove() error {
	if err := os.Remove(p.abs); err != nil && !os.IsNotExist(err) {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.remove", err)
	}
	return nil
}

// Copy copies p's bytes and mode/mtime to dst. Not atomic: a reader of dst
// mid-copy may observe a partial file.
func (p Path) Copy(dst Path) error {
	src, err := os.Open(p.abs)
	if err != nil {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.copy", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.copy.stat", err)
	}

	out, err := os.OpenFile(dst.abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.copy.create", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.copy.write", err)
	}
	if err := out.Close(); err != nil {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.copy.close", err)
	}
	return os.Chtimes(dst.abs, info.ModTime(), info.ModTime())
}

// Replace atomically overwrites src with p's bytes, preserving src's
// directory and mode. A temp file is created alongside src (taking its
// mode), filled with p's contents, then renamed over src — the rename is
// atomic within one filesystem. Ownership is not copied: the replaced file
// is owned by the calling process's user and group. Replacing across
// filesystems fails cleanly rather than leaving partial state.
func (p Path) Replace(src Path) error {
	srcInfo, err := os.Stat(src.abs)
	if err != nil {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.replace.stat", err)
	}

	tmp, err := src.TempPath(src.Dir())
	if err != nil {
		return fmt.Errorf("imagepath: replace: allocate staging file: %w", err)
	}
	defer tmp.Remove()

	// Materialize the staging file from src first, to take src's mode,
	// then overwrite its contents with p's bytes.
	if err := src.Copy(tmp); err != nil {
		return fmt.Errorf("imageoptim: replace: stage from source: %w", err)
	}
	if err := p.Copy(tmp); err != nil {
		return fmt.Errorf("imageoptim: replace: stage optimized bytes: %w", err)
	}
	if err := os.Chmod(tmp.abs, srcInfo.Mode()); err != nil {
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.replace.chmod", err)
	}

	if err := os.Rename(tmp.abs, src.abs); err != nil {
		if isCrossDevice(err) {
			return fmt.Errorf("imageoptim: replace %s: %w", src.abs, optimerr.ErrCrossDevice)
		}
		return optimerr.Wrap(optimerr.CategoryIO, "imagepath.replace.rename", err)
	}
	return nil
}
