// Package handler implements the per-image double-buffer state machine
// described in the engine's design: two temp files are allocated at most,
// and successive worker applications alternate which one is the source and
// which is the scratch destination.
package handler

import (
	"github.com/imageoptim-go/imageoptim/internal/imagepath"
)

// Step is the uniform worker-invocation signature: write an optimized image
// to dst given src, and report whether dst now holds a valid, improved
// result.
type Step func(src, dst imagepath.Path) (bool, error)

// Handler owns the temp files produced while optimizing a single image. It
// must be created per image and Cleanup'd exactly once.
type Handler struct {
	original imagepath.Path
	tempDir  string

	src imagepath.Path

	dst    imagepath.Path
	dstSet bool

	result    imagepath.Path
	resultSet bool

	// owned tracks every temp path ever allocated for this image, so
	// Cleanup can unlink whichever one isn't the final result.
	owned []imagepath.Path
}

// New creates a Handler for original. tempDir overrides the directory used
// for temp file allocation; pass "" to use original's own directory.
func New(original imagepath.Path, tempDir string) *Handler {
	return &Handler{original: original, tempDir: tempDir, src: original}
}

// Process runs one transition: it ensures a destination temp file is
// allocated, invokes fn(src, dst), and advances the state machine per the
// outcome. A worker error is treated the same as a false return (the step
// made no improvement) and is returned to the caller for logging.
func (h *Handler) Process(fn Step) error {
	if !h.dstSet {
		t, err := h.original.TempPath(h.tempDir)
		if err != nil {
			return err
		}
		h.dst = t
		h.dstSet = true
		h.owned = append(h.owned, t)
	}

	ok, err := fn(h.src, h.dst)
	if !ok {
		// dst remains allocated for reuse by the next Process call; src and
		// result are untouched.
		return err
	}

	h.result = h.dst
	h.resultSet = true

	if h.src.Equal(h.original) {
		// First success: promote dst to src, and allocate a fresh temp for
		// the next dst on the following call.
		h.src = h.dst
		h.dstSet = false
	} else {
		// Subsequent success: swap roles. The former src becomes the next
		// scratch destination.
		h.src, h.dst = h.dst, h.src
	}
	return err
}

// Result returns the latest successful output, if any.
func (h *Handler) Result() (imagepath.Path, bool) {
	return h.result, h.resultSet
}

// Cleanup unlinks every owned temp file except the current result, which is
// left for the caller to consume or rename. Safe to call multiple times.
func (h *Handler) Cleanup() error {
	var firstErr error
	for _, p := range h.owned {
		if h.resultSet && p.Equal(h.result) {
			continue
		}
		if err := p.Remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	h.owned = nil
	return firstErr
}
