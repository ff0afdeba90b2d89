package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			src.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func TestTransformProducesExactDimensions(t *testing.T) {
	out, err := Transform(pngFixture(t, 800, 600), 500, 500, 90)
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}

	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("decoding transformed image: %v", err)
	}
	if w != 500 || h != 500 {
		t.Fatalf("expected 500x500, got %dx%d", w, h)
	}
}

func TestTransformUpscalesSmallInput(t *testing.T) {
	out, err := Thumbnail(pngFixture(t, 50, 80))
	if err != nil {
		t.Fatalf("Thumbnail returned error: %v", err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatalf("decoding transformed image: %v", err)
	}
	if w != ThumbnailWidth || h != ThumbnailHeight {
		t.Fatalf("expected %dx%d, got %dx%d", ThumbnailWidth, ThumbnailHeight, w, h)
	}
}

func TestTransformRejectsGarbage(t *testing.T) {
	if _, err := Transform([]byte("definitely not an image"), 500, 500, 90); err == nil {
		t.Fatal("expected error for undecodable input")
	}
}
