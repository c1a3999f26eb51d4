package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createTestPNG generates a small solid-color PNG image in memory.
func createTestPNG(width, height int, c color.Color) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestProbe(t *testing.T) {
	data := createTestPNG(8, 8, color.RGBA{R: 0, G: 255, B: 0, A: 255})

	info, err := NewInspector().Probe(data)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	if info.Type != "PNG" {
		t.Errorf("expected PNG, got %s", info.Type)
	}
	if info.Width != 8 || info.Height != 8 {
		t.Errorf("expected 8x8, got %dx%d", info.Width, info.Height)
	}
}

func TestProbe_Garbage(t *testing.T) {
	if _, err := NewInspector().Probe([]byte("definitely not an image")); err == nil {
		t.Error("expected error for non-image bytes")
	}
}
