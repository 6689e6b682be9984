// Package imgformat sniffs the first bytes of an image file to classify its
// container format. It never fails on malformed input: ambiguous or
// truncated headers simply report no match so callers can skip the file.
package imgformat

import (
	"bytes"
	"errors"
	"io"
	"os"
)

// Format identifies a recognized raster or vector image container.
type Format string

const (
	JPEG Format = "jpeg"
	PNG  Format = "png"
	GIF  Format = "gif"
	SVG  Format = "svg"
	WebP Format = "webp"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Minimum byte counts required before a magic-byte match is trusted as a
// complete, parseable header rather than a truncated fragment. A file whose
// prefix matches a signature but falls short of these lengths is reported as
// unrecognized rather than guessed at.
const (
	minJPEG = 4
	minPNG  = 16 // 8-byte signature + first chunk length/type
	minGIF  = 13 // 6-byte signature + logical screen descriptor
	minWebP = 20 // RIFF header + size + "WEBP" + first chunk header
	svgScan = 512
)

// Detect sniffs data and returns the recognized Format, or ok=false if data
// does not contain a complete, recognizable image header.
func Detect(data []byte) (Format, bool) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		if len(data) < minJPEG {
			return "", false
		}
		return JPEG, true

	case len(data) >= len(pngSignature) && bytes.Equal(data[:len(pngSignature)], pngSignature):
		if len(data) < minPNG {
			return "", false
		}
		return PNG, true

	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		if len(data) < minGIF {
			return "", false
		}
		return GIF, true

	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		if len(data) < minWebP {
			return "", false
		}
		return WebP, true
	}

	if looksLikeSVG(data) {
		return SVG, true
	}

	return "", false
}

// looksLikeSVG performs a best-effort textual scan for an <svg element
// within the first svgScan bytes, tolerating a leading XML prolog or BOM.
func looksLikeSVG(data []byte) bool {
	window := data
	if len(window) > svgScan {
		window = window[:svgScan]
	}
	return bytes.Contains(window, []byte("<svg"))
}

// DetectFile reads enough of path's header to classify its format.
func DetectFile(path string) (Format, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	buf := make([]byte, svgScan)
	n, readErr := f.Read(buf)
	if readErr != nil && n == 0 {
		if errors.Is(readErr, io.EOF) {
			return "", false, nil
		}
		return "", false, readErr
	}
	format, ok := Detect(buf[:n])
	return format, ok, nil
}
