package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadImageChannels(t *testing.T) {
	path := writePNG(t, 3, 2)
	for channels := 1; channels <= 4; channels++ {
		img, err := LoadImage(path, channels)
		if err != nil {
			t.Fatalf("LoadImage(%d): %v", channels, err)
		}
		if img.Width != 3 || img.Height != 2 || img.Channels != channels {
			t.Fatalf("got %dx%d with %d channels", img.Width, img.Height, img.Channels)
		}
		if len(img.Pixels) != 3*2*channels {
			t.Fatalf("%d channels: %d bytes", channels, len(img.Pixels))
		}
		// Pixel (2,1) starts at (1*3+2)*channels and its red is x.
		if got := img.Pixels[(1*3+2)*channels]; got != 2 {
			t.Fatalf("%d channels: red of (2,1) = %d", channels, got)
		}
	}
}

func TestLoadImageErrors(t *testing.T) {
	if _, err := LoadImage(writePNG(t, 1, 1), 5); err == nil {
		t.Fatalf("5 channels must be rejected")
	}
	junk := filepath.Join(t.TempDir(), "junk.png")
	if err := os.WriteFile(junk, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadImage(junk, 4); err == nil {
		t.Fatalf("undecodable file must fail")
	}
}

func TestLoadImageMaxDownscales(t *testing.T) {
	img, err := LoadImageMax(writePNG(t, 64, 16), 4, 32)
	if err != nil {
		t.Fatalf("LoadImageMax: %v", err)
	}
	if img.Width != 32 || img.Height != 8 || len(img.Pixels) != 32*8*4 {
		t.Fatalf("got %dx%d, %d bytes", img.Width, img.Height, len(img.Pixels))
	}
}

func TestFitBounds(t *testing.T) {
	cases := []struct {
		in   image.Rectangle
		max  uint32
		w, h int
	}{
		{image.Rect(0, 0, 100, 50), 0, 100, 50},
		{image.Rect(10, 10, 110, 60), 200, 100, 50},
		{image.Rect(0, 0, 100, 50), 10, 10, 5},
		{image.Rect(0, 0, 1000, 1), 10, 10, 1},
	}
	for _, c := range cases {
		got := fitBounds(c.in, c.max)
		if got.Dx() != c.w || got.Dy() != c.h || got.Min != image.Pt(0, 0) {
			t.Errorf("fitBounds(%v, %d) = %v", c.in, c.max, got)
		}
	}
}
