package volume

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

/**
 * @brief A coarse grid over a volume. A cell is non-zero when any voxel in it,
 * or right next to it, is visible under the current transfer function.
 */
type OccupancyGrid struct {
	Texture       metadata.TextureHandle
	Sampler       metadata.SamplerHandle
	Dims          emath.UVec3
	VoxelsPerCell uint32
}

// GridDimensions returns the cell counts covering a volume of dims.
func GridDimensions(dims emath.UVec3, voxelsPerCell uint32) emath.UVec3 {
	return dims.CeilDiv(emath.UVec3{X: voxelsPerCell, Y: voxelsPerCell, Z: voxelsPerCell})
}

// DispatchGroups returns the 8x8x8 thread groups covering a grid.
func DispatchGroups(grid emath.UVec3) emath.UVec3 {
	return grid.CeilDiv(emath.UVec3{X: groupSize, Y: groupSize, Z: groupSize})
}

type OccupancyBuilder struct {
	rm            *renderer.ResourceManager
	program       computeProgram
	constants     metadata.BufferHandle
	voxelsPerCell uint32

	// Persistent across rebuilds unless the grid size changes.
	grid       metadata.TextureHandle
	gridDims   emath.UVec3
	sampler    metadata.SamplerHandle
	lastGroups emath.UVec3
}

func NewOccupancyBuilder(rm *renderer.ResourceManager, cm *assets.ContentManager, voxelsPerCell uint32) (*OccupancyBuilder, error) {
	if voxelsPerCell == 0 {
		return nil, core.ErrInvalidCellCount
	}
	return &OccupancyBuilder{
		rm:            rm,
		program:       newComputeProgram(rm, cm),
		constants:     metadata.InvalidBuffer,
		voxelsPerCell: voxelsPerCell,
		grid:          metadata.InvalidTexture,
		sampler:       metadata.InvalidSampler,
	}, nil
}

func (ob *OccupancyBuilder) Initialize(programPath string) error {
	if err := ob.program.load(programPath); err != nil {
		core.LogError("occupancy: cannot load %s: %s", programPath, err)
		return err
	}
	if !ob.constants.IsValid() {
		cb, err := ob.rm.CreateBuffer(metadata.ConstantBuffer("occupancy-constants", 16), nil)
		if err != nil {
			return err
		}
		ob.constants = cb
	}
	if !ob.sampler.IsValid() {
		s, err := ob.rm.CreateSamplerState(metadata.MaxClampSampler())
		if err != nil {
			return err
		}
		ob.sampler = s
	}
	return nil
}

func (ob *OccupancyBuilder) VoxelsPerCell() uint32 {
	return ob.voxelsPerCell
}

// LastDispatch returns the thread groups of the most recent build.
func (ob *OccupancyBuilder) LastDispatch() emath.UVec3 {
	return ob.lastGroups
}

/**
 * @brief Rebuilds the grid of volume under the transfer texture. The returned
 * grid is owned by the builder and stays valid until the next build or Release.
 */
func (ob *OccupancyBuilder) GenerateVolumeGrid(volume *Volume, transfer metadata.TextureHandle) (*OccupancyGrid, error) {
	if volume == nil || !volume.Texture.IsValid() {
		return nil, core.ErrVolumeNotLoaded
	}
	if !ob.program.ready() || !ob.constants.IsValid() {
		return nil, fmt.Errorf("occupancy builder: %w", core.ErrNotInitialized)
	}
	dims := GridDimensions(volume.Dims, ob.voxelsPerCell)

	constants, err := encodeConstants(gridConstants{VolumeDims: volume.Dims, VoxelsPerCell: ob.voxelsPerCell})
	if err != nil {
		return nil, err
	}
	if err := ob.rm.UpdateBuffer(ob.constants, constants); err != nil {
		return nil, err
	}

	scratch, err := ob.rm.CreateTexture(metadata.Volume3D(volume.Name+"-occupancy-scratch", dims,
		metadata.FormatR8Unorm, metadata.UsageDefault, metadata.BindUnorderedAccess), nil)
	if err != nil {
		return nil, err
	}
	defer ob.rm.DestroyTexture(scratch)

	if err := ob.dispatch(volume.Texture, transfer, scratch, dims); err != nil {
		return nil, err
	}
	if err := ob.ensureGrid(volume.Name, dims); err != nil {
		return nil, err
	}
	if err := ob.rm.Transition(scratch, metadata.StateCopySource); err != nil {
		return nil, err
	}
	if err := ob.rm.Transition(ob.grid, metadata.StateCopyDest); err != nil {
		return nil, err
	}
	if err := ob.rm.CopyTexture(ob.grid, scratch); err != nil {
		return nil, err
	}
	if err := ob.rm.Transition(ob.grid, metadata.StateShaderResource); err != nil {
		return nil, err
	}

	core.LogDebug("occupancy grid %dx%dx%d, %d voxels per cell", dims.X, dims.Y, dims.Z, ob.voxelsPerCell)
	return &OccupancyGrid{Texture: ob.grid, Sampler: ob.sampler, Dims: dims, VoxelsPerCell: ob.voxelsPerCell}, nil
}

func (ob *OccupancyBuilder) dispatch(volume, transfer, scratch metadata.TextureHandle, dims emath.UVec3) error {
	if err := ob.rm.BindPipeline(ob.program.pipeline); err != nil {
		return err
	}
	if err := ob.rm.BindConstantBuffer(metadata.ShaderStageCompute, 0, ob.constants); err != nil {
		return err
	}
	if err := ob.rm.BindTexture(metadata.ShaderStageCompute, 0, volume); err != nil {
		return err
	}
	if err := ob.rm.BindTexture(metadata.ShaderStageCompute, 1, transfer); err != nil {
		return err
	}
	if err := ob.rm.BindUnorderedAccess(0, scratch); err != nil {
		return err
	}
	ob.lastGroups = DispatchGroups(dims)
	err := ob.rm.Dispatch(ob.lastGroups.X, ob.lastGroups.Y, ob.lastGroups.Z)

	ob.rm.BindUnorderedAccess(0, metadata.InvalidTexture)
	ob.rm.BindTexture(metadata.ShaderStageCompute, 0, metadata.InvalidTexture)
	ob.rm.BindTexture(metadata.ShaderStageCompute, 1, metadata.InvalidTexture)
	return err
}

func (ob *OccupancyBuilder) ensureGrid(name string, dims emath.UVec3) error {
	if ob.grid.IsValid() && ob.gridDims == dims {
		return nil
	}
	if ob.grid.IsValid() {
		ob.rm.DestroyTexture(ob.grid)
	}
	grid, err := ob.rm.CreateTexture(metadata.Volume3D(name+"-occupancy", dims,
		metadata.FormatR8Unorm, metadata.UsageDefault, metadata.BindShaderResource), nil)
	if err != nil {
		ob.grid = metadata.InvalidTexture
		return err
	}
	ob.grid, ob.gridDims = grid, dims
	return nil
}

func (ob *OccupancyBuilder) Release() {
	ob.program.release()
	if ob.grid.IsValid() {
		ob.rm.DestroyTexture(ob.grid)
		ob.grid = metadata.InvalidTexture
	}
	if ob.constants.IsValid() {
		ob.rm.DestroyBuffer(ob.constants)
		ob.constants = metadata.InvalidBuffer
	}
}
