package renderer

import (
	"github.com/spaghettifunk/snowfall/engine/containers"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

// getState returns the cached state object equal to desc, creating it on the
// device on a miss. A hash hit is only reused when the descriptors are equal.
func getState[D any](cache *containers.StateCache[stateRecord[D]], desc D, hash uint64,
	equal func(a, b *D) bool, create func(*D) (DeviceObject, error)) (int32, error) {
	if index, _ := cache.Find(hash, func(r *stateRecord[D]) bool { return equal(&r.desc, &desc) }); index >= 0 {
		return int32(index), nil
	}
	if _, existing := cache.FindByHash(hash); existing != nil {
		core.LogDebug("state hash collision on %016x, creating a distinct object", hash)
	}
	native, err := create(&desc)
	if err != nil {
		return -1, err
	}
	index, rec, err := cache.Allocate(hash)
	if err != nil {
		native.Release()
		return -1, err
	}
	rec.desc = desc
	rec.native = native
	return int32(index), nil
}

func equalComparable[D comparable](a, b *D) bool {
	return *a == *b
}

func (rm *ResourceManager) CreateSamplerState(desc metadata.SamplerDescriptor) (metadata.SamplerHandle, error) {
	create := func(d *metadata.SamplerDescriptor) (DeviceObject, error) {
		native, err := rm.device.CreateSamplerState(d)
		if err == nil && rm.creations != nil {
			rm.creations.OnCreateSampler(d)
		}
		return native, err
	}
	index, err := getState(&rm.samplers, desc, desc.Hash(), equalComparable[metadata.SamplerDescriptor], create)
	if err != nil {
		core.LogError("CreateSamplerState: %s", err)
		return metadata.InvalidSampler, err
	}
	return metadata.SamplerHandle(index), nil
}

func (rm *ResourceManager) GetBlendState(desc metadata.BlendDescriptor) (metadata.BlendHandle, error) {
	index, err := getState(&rm.blends, desc, desc.Hash(), equalComparable[metadata.BlendDescriptor], rm.device.CreateBlendState)
	if err != nil {
		core.LogError("GetBlendState: %s", err)
		return metadata.InvalidBlend, err
	}
	return metadata.BlendHandle(index), nil
}

func (rm *ResourceManager) GetRasterState(desc metadata.RasterDescriptor) (metadata.RasterHandle, error) {
	create := func(d *metadata.RasterDescriptor) (DeviceObject, error) {
		native, err := rm.device.CreateRasterState(d)
		if err == nil && rm.creations != nil {
			rm.creations.OnCreateRaster(d)
		}
		return native, err
	}
	index, err := getState(&rm.rasters, desc, desc.Hash(), equalComparable[metadata.RasterDescriptor], create)
	if err != nil {
		core.LogError("GetRasterState: %s", err)
		return metadata.InvalidRaster, err
	}
	return metadata.RasterHandle(index), nil
}

func (rm *ResourceManager) GetDepthState(desc metadata.DepthDescriptor) (metadata.DepthHandle, error) {
	index, err := getState(&rm.depths, desc, desc.Hash(), equalComparable[metadata.DepthDescriptor], rm.device.CreateDepthState)
	if err != nil {
		core.LogError("GetDepthState: %s", err)
		return metadata.InvalidDepth, err
	}
	return metadata.DepthHandle(index), nil
}

// GetInputLayout validates the layout against vertexShader on first creation.
func (rm *ResourceManager) GetInputLayout(desc metadata.InputLayoutDescriptor, vertexShader metadata.ShaderHandle) (metadata.InputLayoutHandle, error) {
	vs, err := rm.shaderNative(vertexShader, metadata.ShaderStageVertex)
	if err != nil {
		return metadata.InvalidInputLayout, err
	}
	create := func(d *metadata.InputLayoutDescriptor) (DeviceObject, error) {
		return rm.device.CreateInputLayout(d, vs)
	}
	equal := func(a, b *metadata.InputLayoutDescriptor) bool { return a.Equal(b) }
	index, err := getState(&rm.inputLayouts, desc, desc.Hash(), equal, create)
	if err != nil {
		core.LogError("GetInputLayout: %s", err)
		return metadata.InvalidInputLayout, err
	}
	return metadata.InputLayoutHandle(index), nil
}
