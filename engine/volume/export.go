package volume

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
	"golang.org/x/image/bmp"
)

/**
 * @brief Writes slice z of tightly packed texture data as a greyscale BMP.
 * R8 textures are written as they are. RGBA8 volumes keep the intensity in
 * alpha, so only that channel is written.
 */
func ExportSlice(w io.Writer, data []byte, desc metadata.TextureDescriptor, z uint32) error {
	dims := desc.Dimensions()
	if z >= dims.Z {
		return fmt.Errorf("slice %d of %d: %w", z, dims.Z, core.ErrInvalidDescriptor)
	}
	bpp := int(desc.Format.BytesPerPixel())
	rowBytes := int(dims.X) * bpp
	sliceBytes := rowBytes * int(dims.Y)
	offset := int(z) * sliceBytes
	if len(data) < offset+sliceBytes {
		return fmt.Errorf("%d bytes for slice %d of %dx%dx%d: %w", len(data), z, dims.X, dims.Y, dims.Z, core.ErrTextureDataOverrun)
	}
	slice := data[offset : offset+sliceBytes]
	rect := image.Rect(0, 0, int(dims.X), int(dims.Y))

	var img image.Image
	switch desc.Format {
	case metadata.FormatR8Unorm:
		img = &image.Gray{Pix: slice, Stride: rowBytes, Rect: rect}
	case metadata.FormatRGBA8Unorm:
		gray := image.NewGray(rect)
		for i := range gray.Pix {
			gray.Pix[i] = slice[i*4+3]
		}
		img = gray
	default:
		return fmt.Errorf("export of %s: %w", desc.Format, core.ErrUnsupportedFormat)
	}
	return bmp.Encode(w, img)
}

// ExportTexture reads h back and writes its middle slice to dir/name.bmp.
func ExportTexture(rm *renderer.ResourceManager, h metadata.TextureHandle, dir, name string) (string, error) {
	desc, ok := rm.TextureDescriptor(h)
	if !ok {
		return "", core.ErrInvalidHandle
	}
	data, err := rm.GetTextureData(h)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".bmp")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := ExportSlice(f, data, desc, desc.Dimensions().Z/2); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// ExportDebugSlices writes the middle slices of the volume and its occupancy grid.
func (p *Pipeline) ExportDebugSlices(dir string) ([]string, error) {
	if p.volume == nil {
		return nil, core.ErrVolumeNotLoaded
	}
	var paths []string
	path, err := ExportTexture(p.services.Resources, p.volume.Texture, dir, p.volume.Name)
	if err != nil {
		return nil, err
	}
	paths = append(paths, path)
	if p.grid != nil {
		if path, err = ExportTexture(p.services.Resources, p.grid.Texture, dir, p.volume.Name+"-occupancy"); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	core.LogInfo("exported %d debug slices to %s", len(paths), dir)
	return paths, nil
}
