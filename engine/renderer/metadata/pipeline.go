package metadata

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
)

type PrimitiveTopology uint8

const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

/**
 * @brief Describes a graphics or compute pipeline. A pipeline with a compute
 * shader ignores every other field.
 */
type PipelineDescriptor struct {
	VertexShader  ShaderHandle
	PixelShader   ShaderHandle
	ComputeShader ShaderHandle
	InputLayout   InputLayoutHandle
	Blend         BlendHandle
	Raster        RasterHandle
	Depth         DepthHandle
	Topology      PrimitiveTopology
	/** @brief Formats of the bound colour targets, FormatUnknown for unused slots. */
	RenderTargets [MaxRenderTargets]Format
	DepthFormat   Format
	DebugName     string
}

// GraphicsPipeline returns a descriptor with no input layout and the default
// fixed-function states left invalid, meaning device defaults.
func GraphicsPipeline(name string, vs, ps ShaderHandle) PipelineDescriptor {
	return PipelineDescriptor{
		VertexShader:  vs,
		PixelShader:   ps,
		ComputeShader: InvalidShader,
		InputLayout:   InvalidInputLayout,
		Blend:         InvalidBlend,
		Raster:        InvalidRaster,
		Depth:         InvalidDepth,
		Topology:      TopologyTriangleList,
		DebugName:     name,
	}
}

func ComputePipeline(name string, cs ShaderHandle) PipelineDescriptor {
	d := GraphicsPipeline(name, InvalidShader, InvalidShader)
	d.ComputeShader = cs
	return d
}

func (d *PipelineDescriptor) IsCompute() bool {
	return d.ComputeShader.IsValid()
}

func (d *PipelineDescriptor) Validate() error {
	if d.IsCompute() {
		return nil
	}
	if !d.VertexShader.IsValid() {
		return fmt.Errorf("pipeline %q has no vertex shader: %w", d.DebugName, core.ErrInvalidDescriptor)
	}
	return nil
}
