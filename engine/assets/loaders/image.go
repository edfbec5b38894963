package loaders

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

/**
 * @brief A decoded image, always expanded to tightly packed RGBA8.
 */
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

/**
 * @brief Decodes PNG and BMP files. FlipY stores the bottom row first.
 */
type ImageLoader struct {
	FlipY bool
}

func (il *ImageLoader) Load(path string) (interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image loader: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return DecodeRGBA(img, il.FlipY), nil
}

func (il *ImageLoader) Unload(data interface{}) error {
	if img, ok := data.(*ImageData); ok {
		img.Pixels = nil
	}
	return nil
}

// DecodeRGBA converts any image into packed RGBA8 rows.
func DecodeRGBA(img image.Image, flipY bool) *ImageData {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	w, h := b.Dx(), b.Dy()
	out := &ImageData{Width: uint32(w), Height: uint32(h), Pixels: make([]byte, w*h*4)}
	for y := 0; y < h; y++ {
		src := y
		if flipY {
			src = h - 1 - y
		}
		copy(out.Pixels[y*w*4:(y+1)*w*4], rgba.Pix[src*rgba.Stride:src*rgba.Stride+w*4])
	}
	return out
}
