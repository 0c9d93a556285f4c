package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image holds tightly packed 8-bit pixels, top row first.
type Image struct {
	Pixels   []byte
	Width    uint32
	Height   uint32
	Channels int
}

// LoadImage decodes png, jpeg, bmp, tiff or webp and keeps the first
// channels components of every RGBA pixel.
func LoadImage(path string, channels int) (*Image, error) {
	return LoadImageMax(path, channels, 0)
}

// LoadImageMax is LoadImage with the longer side limited to maxDim pixels.
// Zero means no limit.
func LoadImageMax(path string, channels int, maxDim uint32) (*Image, error) {
	if channels < 1 || channels > 4 {
		return nil, fmt.Errorf("%s: unsupported channel count %d", path, channels)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bounds := fitBounds(src.Bounds(), maxDim)
	rgba := image.NewNRGBA(bounds)
	if bounds.Size() == src.Bounds().Size() {
		draw.Draw(rgba, bounds, src, src.Bounds().Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, bounds, src, src.Bounds(), draw.Src, nil)
	}

	return &Image{
		Pixels:   packChannels(rgba, channels),
		Width:    uint32(bounds.Dx()),
		Height:   uint32(bounds.Dy()),
		Channels: channels,
	}, nil
}

// fitBounds scales b down, keeping the aspect ratio, until neither side
// exceeds maxDim. The result starts at the origin.
func fitBounds(b image.Rectangle, maxDim uint32) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if maxDim == 0 || longest <= int(maxDim) {
		return image.Rect(0, 0, w, h)
	}
	scale := float64(maxDim) / float64(longest)
	nw, nh := int(float64(w)*scale), int(float64(h)*scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return image.Rect(0, 0, nw, nh)
}

func packChannels(img *image.NRGBA, channels int) []byte {
	if channels == 4 && img.Stride == 4*img.Rect.Dx() {
		return img.Pix
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]byte, 0, w*h*channels)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*w]
		for x := 0; x < w; x++ {
			out = append(out, row[4*x:4*x+channels]...)
		}
	}
	return out
}
