package testutils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// MinimalPNG returns a valid tiny PNG suitable for upload tests.
func MinimalPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// WriteTempPNG writes a valid PNG file into dir and returns its path.
func WriteTempPNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, MinimalPNG(), 0644); err != nil {
		t.Fatalf("write png fixture: %v", err)
	}
	return path
}
