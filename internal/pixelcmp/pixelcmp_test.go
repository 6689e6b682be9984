package pixelcmp

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func canonicalPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 2), G: uint8(y * 2), B: uint8((x + y) % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("encode canonical png: %v", err)
	}
	return buf.Bytes()
}

// recompress re-encodes the same decoded pixels at BestCompression,
// standing in for a real lossless PNG optimizer binary: same pixels,
// smaller bytes.
func recompress(t *testing.T, data []byte) []byte {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	return buf.Bytes()
}

func TestRMSEZeroForLosslessRecompression(t *testing.T) {
	original := canonicalPNG(t, 100, 100)
	optimized := recompress(t, original)

	if len(optimized) >= len(original) {
		t.Fatalf("expected recompression to shrink the file: got %d, want < %d", len(optimized), len(original))
	}

	a, err := png.Decode(bytes.NewReader(original))
	if err != nil {
		t.Fatalf("decode original: %v", err)
	}
	b, err := png.Decode(bytes.NewReader(optimized))
	if err != nil {
		t.Fatalf("decode optimized: %v", err)
	}

	rmse, err := RMSE(a, b)
	if err != nil {
		t.Fatalf("RMSE: %v", err)
	}
	if rmse != 0 {
		t.Errorf("RMSE = %v, want 0 for a lossless recompression", rmse)
	}

	lossless, err := Lossless(a, b)
	if err != nil {
		t.Fatalf("Lossless: %v", err)
	}
	if !lossless {
		t.Error("Lossless() = false, want true")
	}
}

func TestRMSENonZeroForAlteredPixels(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			a.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
			b.Set(x, y, color.RGBA{R: 11, G: 20, B: 30, A: 255})
		}
	}

	rmse, err := RMSE(a, b)
	if err != nil {
		t.Fatalf("RMSE: %v", err)
	}
	if rmse == 0 {
		t.Error("RMSE = 0, want nonzero for images differing by one channel")
	}
}

func TestRMSEDimensionMismatchErrors(t *testing.T) {
	a := image.NewRGBA(image.Rect(0, 0, 4, 4))
	b := image.NewRGBA(image.Rect(0, 0, 5, 5))
	if _, err := RMSE(a, b); err == nil {
		t.Error("expected an error for mismatched dimensions")
	}
}
