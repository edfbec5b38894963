package volume

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/assets/loaders"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

type RawVolume = loaders.RawVolume

/** @brief Runs work off the render thread. The engine job system satisfies it. */
type JobSubmitter interface {
	Submit(job metadata.JobTask) error
}

/** @brief The intensity range of a volume, in voxel units. */
type Range struct {
	Min float32
	Max float32
}

// Extent is Max-Min, or 1 for a constant volume.
func (r Range) Extent() float32 {
	if r.Max > r.Min {
		return r.Max - r.Min
	}
	return 1
}

type RangeResult struct {
	Range Range
	Err   error
}

/**
 * @brief A volume on the GPU: an immutable RGBA8 3D texture holding the
 * gradient normal in RGB and the normalized intensity in A.
 */
type Volume struct {
	Name    string
	Texture metadata.TextureHandle
	Dims    emath.UVec3
	Format  loaders.VoxelFormat
	Range   Range
}

/**
 * @brief Uploads raw volumes and converts them into normals + intensity
 * textures on the GPU.
 */
type Ingestor struct {
	rm        *renderer.ResourceManager
	program   computeProgram
	constants metadata.BufferHandle
}

func NewIngestor(rm *renderer.ResourceManager, cm *assets.ContentManager) *Ingestor {
	return &Ingestor{
		rm:        rm,
		program:   newComputeProgram(rm, cm),
		constants: metadata.InvalidBuffer,
	}
}

/**
 * @brief Loads the normals program. Initializing again with the same path
 * does nothing.
 */
func (in *Ingestor) Initialize(programPath string) error {
	if err := in.program.load(programPath); err != nil {
		core.LogError("ingestor: cannot load %s: %s", programPath, err)
		return err
	}
	if !in.constants.IsValid() {
		cb, err := in.rm.CreateBuffer(metadata.ConstantBuffer("volume-range", 16), nil)
		if err != nil {
			return err
		}
		in.constants = cb
	}
	return nil
}

func (in *Ingestor) IsInitialized() bool {
	return in.program.ready() && in.constants.IsValid()
}

// SourceFormat is the texture format raw voxels of f are uploaded as.
func SourceFormat(f loaders.VoxelFormat) metadata.Format {
	switch f {
	case loaders.VoxelUint16:
		return metadata.FormatR16Unorm
	case loaders.VoxelSint8:
		return metadata.FormatR8Snorm
	case loaders.VoxelSint16:
		return metadata.FormatR16Snorm
	}
	return metadata.FormatR8Unorm
}

// MaxValue is the largest value of the voxel type, the scale its normalized
// texture format divides by.
func MaxValue(f loaders.VoxelFormat) float32 {
	switch f {
	case loaders.VoxelUint16:
		return math.MaxUint16
	case loaders.VoxelSint8:
		return math.MaxInt8
	case loaders.VoxelSint16:
		return math.MaxInt16
	}
	return math.MaxUint8
}

/**
 * @brief Returns the intensity range of src. 8-bit volumes use the full range
 * of their type; 16-bit volumes are scanned voxel by voxel.
 */
func GetRange(src *RawVolume) (Range, error) {
	if !src.IsLoaded() {
		return Range{}, core.ErrVolumeNotLoaded
	}
	switch src.Format {
	case loaders.VoxelUint8:
		return Range{Min: 0, Max: math.MaxUint8}, nil
	case loaders.VoxelSint8:
		return Range{Min: math.MinInt8, Max: math.MaxInt8}, nil
	}

	n := len(src.Data) / 2
	if n == 0 {
		return Range{}, core.ErrVolumeNotLoaded
	}
	signed := src.Format == loaders.VoxelSint16
	read := func(i int) float32 {
		v := binary.LittleEndian.Uint16(src.Data[2*i:])
		if signed {
			return float32(int16(v))
		}
		return float32(v)
	}
	r := Range{Min: read(0), Max: read(0)}
	for i := 1; i < n; i++ {
		v := read(i)
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
	}
	return r, nil
}

/**
 * @brief Scans the range of src on a worker. The result is delivered once on
 * the returned channel. src must not change until then.
 */
func GetRangeAsync(jobs JobSubmitter, src *RawVolume) <-chan RangeResult {
	out := make(chan RangeResult, 1)
	err := jobs.Submit(metadata.JobTask{
		Name: "volume-range " + src.Name,
		OnStart: func(interface{}) (interface{}, error) {
			return GetRange(src)
		},
		OnComplete: func(result interface{}) {
			out <- RangeResult{Range: result.(Range)}
		},
		OnFailure: func(err error) {
			out <- RangeResult{Err: err}
		},
	})
	if err != nil {
		out <- RangeResult{Err: err}
	}
	return out
}

// GenerateVolume scans the range of src and ingests it.
func (in *Ingestor) GenerateVolume(src *RawVolume) (*Volume, error) {
	r, err := GetRange(src)
	if err != nil {
		core.LogError("cannot ingest volume: %s", err)
		return nil, err
	}
	return in.GenerateVolumeWithRange(src, r)
}

/**
 * @brief Uploads src, computes normals on the GPU and returns the immutable
 * result. The CPU copy of src is released on success.
 */
func (in *Ingestor) GenerateVolumeWithRange(src *RawVolume, r Range) (*Volume, error) {
	if !src.IsLoaded() {
		return nil, core.ErrVolumeNotLoaded
	}
	if !in.IsInitialized() {
		return nil, fmt.Errorf("ingestor: %w", core.ErrNotInitialized)
	}
	dims := emath.UVec3{X: src.Width, Y: src.Height, Z: src.Depth}

	source, err := in.rm.CreateTexture(metadata.Volume3D(src.Name+"-source", dims, SourceFormat(src.Format),
		metadata.UsageImmutable, metadata.BindShaderResource), src.Data)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", src.Name, err)
	}
	defer in.rm.DestroyTexture(source)

	constants, err := encodeConstants(rangeConstants{Min: r.Min, Max: r.Max, Range: r.Extent(), InitialValue: MaxValue(src.Format)})
	if err != nil {
		return nil, err
	}
	if err := in.rm.UpdateBuffer(in.constants, constants); err != nil {
		return nil, err
	}

	scratch, err := in.rm.CreateTexture(metadata.Volume3D(src.Name+"-normals", dims, metadata.FormatRGBA8Unorm,
		metadata.UsageDefault, metadata.BindUnorderedAccess), nil)
	if err != nil {
		return nil, err
	}
	defer in.rm.DestroyTexture(scratch)

	if err := in.dispatch(source, scratch, dims); err != nil {
		return nil, err
	}
	if err := in.rm.Transition(scratch, metadata.StateCopySource); err != nil {
		return nil, err
	}
	data, err := in.rm.GetTextureData(scratch)
	if err != nil {
		return nil, err
	}
	texture, err := in.rm.CreateTexture(metadata.Volume3D(src.Name, dims, metadata.FormatRGBA8Unorm,
		metadata.UsageImmutable, metadata.BindShaderResource), data)
	if err != nil {
		return nil, err
	}

	src.ReleaseData()
	core.LogInfo("ingested volume %s %dx%dx%d %s, range [%g, %g]", src.Name, dims.X, dims.Y, dims.Z, src.Format, r.Min, r.Max)
	return &Volume{Name: src.Name, Texture: texture, Dims: dims, Format: src.Format, Range: r}, nil
}

func (in *Ingestor) dispatch(source, scratch metadata.TextureHandle, dims emath.UVec3) error {
	if err := in.rm.BindPipeline(in.program.pipeline); err != nil {
		return err
	}
	if err := in.rm.BindConstantBuffer(metadata.ShaderStageCompute, 0, in.constants); err != nil {
		return err
	}
	if err := in.rm.BindTexture(metadata.ShaderStageCompute, 0, source); err != nil {
		return err
	}
	if err := in.rm.BindUnorderedAccess(0, scratch); err != nil {
		return err
	}
	groups := in.program.groups(dims)
	err := in.rm.Dispatch(groups.X, groups.Y, groups.Z)

	in.rm.BindUnorderedAccess(0, metadata.InvalidTexture)
	in.rm.BindTexture(metadata.ShaderStageCompute, 0, metadata.InvalidTexture)
	return err
}

// DestroyVolume frees the texture of v.
func (in *Ingestor) DestroyVolume(v *Volume) {
	if v != nil {
		in.rm.DestroyTexture(v.Texture)
		v.Texture = metadata.InvalidTexture
	}
}

func (in *Ingestor) Release() {
	in.program.release()
	if in.constants.IsValid() {
		in.rm.DestroyBuffer(in.constants)
		in.constants = metadata.InvalidBuffer
	}
}
