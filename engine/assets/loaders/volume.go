package loaders

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spaghettifunk/snowfall/engine/core"
)

/**
 * @brief The scalar type of every voxel in a raw volume file.
 */
type VoxelFormat int

const (
	VoxelUint8 VoxelFormat = iota
	VoxelUint16
	VoxelSint8
	VoxelSint16
)

func (f VoxelFormat) String() string {
	switch f {
	case VoxelUint8:
		return "Uint8"
	case VoxelUint16:
		return "Uint16"
	case VoxelSint8:
		return "Sint8"
	case VoxelSint16:
		return "Sint16"
	}
	return fmt.Sprintf("VoxelFormat(%d)", int(f))
}

func ParseVoxelFormat(s string) (VoxelFormat, error) {
	switch s {
	case "Uint8":
		return VoxelUint8, nil
	case "Uint16":
		return VoxelUint16, nil
	case "Sint8":
		return VoxelSint8, nil
	case "Sint16":
		return VoxelSint16, nil
	}
	return 0, fmt.Errorf("unknown voxel format %q: %w", s, core.ErrMalformedMeta)
}

func (f VoxelFormat) BytesPerVoxel() int {
	if f == VoxelUint16 || f == VoxelSint16 {
		return 2
	}
	return 1
}

func (f VoxelFormat) Is16Bit() bool {
	return f.BytesPerVoxel() == 2
}

/**
 * @brief The contents of a .meta sidecar.
 */
type VolumeMeta struct {
	Width   uint32
	Height  uint32
	Depth   uint32
	NumDims uint32
	Format  VoxelFormat
}

func (m VolumeMeta) VoxelCount() int {
	return int(m.Width) * int(m.Height) * int(m.Depth)
}

func (m VolumeMeta) ByteSize() int {
	return m.VoxelCount() * m.Format.BytesPerVoxel()
}

/**
 * @brief A raw intensity volume in CPU memory. Data is little-endian and laid
 * out x fastest, then y, then z.
 */
type RawVolume struct {
	VolumeMeta
	Name string
	Path string
	Data []byte
}

func (v *RawVolume) IsLoaded() bool {
	return v != nil && v.Data != nil
}

// ReleaseData drops the CPU copy once the volume lives on the GPU.
func (v *RawVolume) ReleaseData() {
	v.Data = nil
}

// MetaPath returns the sidecar path for a raw volume file.
func MetaPath(rawPath string) string {
	return strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ".meta"
}

/**
 * @brief Parses Key=Value lines. Blank lines and lines starting with '#' are
 * skipped; unknown keys are ignored.
 */
func ParseMeta(r io.Reader) (VolumeMeta, error) {
	meta := VolumeMeta{NumDims: 3}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return meta, fmt.Errorf("line %d %q: %w", line, text, core.ErrMalformedMeta)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		var err error
		switch key {
		case "Width":
			meta.Width, err = parseDim(value)
		case "Height":
			meta.Height, err = parseDim(value)
		case "Depth":
			meta.Depth, err = parseDim(value)
		case "NumDims":
			meta.NumDims, err = parseDim(value)
		case "Format":
			meta.Format, err = ParseVoxelFormat(value)
		default:
			continue
		}
		if err != nil {
			return meta, fmt.Errorf("line %d: %w", line, err)
		}
		seen[key] = true
	}
	if err := scanner.Err(); err != nil {
		return meta, err
	}

	for _, key := range []string{"Width", "Height", "Depth", "Format"} {
		if !seen[key] {
			return meta, fmt.Errorf("missing %s: %w", key, core.ErrMalformedMeta)
		}
	}
	return meta, nil
}

func parseDim(value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("dimension %q: %w", value, core.ErrMalformedMeta)
	}
	return uint32(v), nil
}

func ReadMeta(path string) (VolumeMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return VolumeMeta{}, fmt.Errorf("%s: %w", path, core.ErrMissingMeta)
		}
		return VolumeMeta{}, err
	}
	defer f.Close()

	meta, err := ParseMeta(f)
	if err != nil {
		return meta, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

/**
 * @brief Writes the sidecar for a raw volume, in the format ParseMeta reads.
 */
func WriteMeta(path string, meta VolumeMeta) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "Width=%d\nHeight=%d\nDepth=%d\nNumDims=%d\nFormat=%s\n",
		meta.Width, meta.Height, meta.Depth, max(meta.NumDims, 1), meta.Format)
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

/**
 * @brief Loads a .raw file together with its .meta sidecar into a *RawVolume.
 */
type RawVolumeLoader struct{}

func (rl *RawVolumeLoader) Load(path string) (interface{}, error) {
	meta, err := ReadMeta(MetaPath(path))
	if err != nil {
		core.LogError("cannot load volume %s: %s", path, err)
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("raw volume loader: %w", err)
	}
	want := meta.ByteSize()
	if len(data) < want {
		return nil, fmt.Errorf("%s has %d bytes, %dx%dx%d %s needs %d: %w",
			path, len(data), meta.Width, meta.Height, meta.Depth, meta.Format, want, core.ErrMalformedVolume)
	}
	if len(data) > want {
		core.LogWarn("%s has %d trailing bytes, ignoring them", path, len(data)-want)
		data = data[:want]
	}

	return &RawVolume{
		VolumeMeta: meta,
		Name:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:       path,
		Data:       data,
	}, nil
}

func (rl *RawVolumeLoader) Unload(data interface{}) error {
	if v, ok := data.(*RawVolume); ok {
		v.ReleaseData()
	}
	return nil
}
