package metadata

import (
	"golang.org/x/exp/slices"
)

type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

/** @brief Sampler filtering. The Minimum/Maximum variants reduce instead of blending. */
type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
	FilterAnisotropic
	FilterMinimumPoint
	FilterMinimumLinear
	FilterMaximumPoint
	FilterMaximumLinear
)

type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
)

/**
 * @brief Describes an immutable sampler state object.
 */
type SamplerDescriptor struct {
	Filter        Filter
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MipLODBias    float32
	MaxAnisotropy uint32
	Comparison    CompareFunc
	BorderColor   [4]float32
	MinLOD        float32
	MaxLOD        float32
}

func (d *SamplerDescriptor) Hash() uint64 {
	var h hasher
	h.u32(uint32(d.Filter), uint32(d.AddressU), uint32(d.AddressV), uint32(d.AddressW))
	h.f32(d.MipLODBias)
	h.u32(d.MaxAnisotropy, uint32(d.Comparison))
	h.f32(d.BorderColor[:]...)
	h.f32(d.MinLOD, d.MaxLOD)
	return h.sum()
}

// PointClampSampler samples the nearest texel and clamps at the edges.
func PointClampSampler() SamplerDescriptor {
	return SamplerDescriptor{
		Filter:   FilterPoint,
		AddressU: AddressClamp,
		AddressV: AddressClamp,
		AddressW: AddressClamp,
		MaxLOD:   float32(1 << 15),
	}
}

// LinearClampSampler blends neighbouring texels and clamps at the edges.
func LinearClampSampler() SamplerDescriptor {
	s := PointClampSampler()
	s.Filter = FilterLinear
	return s
}

// MaxClampSampler returns the largest neighbouring texel so sampling between
// cells never under-reports.
func MaxClampSampler() SamplerDescriptor {
	s := PointClampSampler()
	s.Filter = FilterMaximumLinear
	return s
}

type Blend uint8

const (
	BlendZero Blend = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDestAlpha
	BlendInvDestAlpha
	BlendDestColor
	BlendInvDestColor
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpRevSubtract
	BlendOpMin
	BlendOpMax
)

const ColorWriteAll uint8 = 0xF

type RenderTargetBlend struct {
	Enable    bool
	Src       Blend
	Dest      Blend
	Op        BlendOp
	SrcAlpha  Blend
	DestAlpha Blend
	OpAlpha   BlendOp
	WriteMask uint8
}

const MaxRenderTargets = 8

/**
 * @brief Describes an immutable blend state object.
 */
type BlendDescriptor struct {
	AlphaToCoverage  bool
	IndependentBlend bool
	RenderTargets    [MaxRenderTargets]RenderTargetBlend
}

func (d *BlendDescriptor) Hash() uint64 {
	var h hasher
	h.bool(d.AlphaToCoverage, d.IndependentBlend)
	for _, rt := range d.RenderTargets {
		h.bool(rt.Enable)
		h.u32(uint32(rt.Src), uint32(rt.Dest), uint32(rt.Op), uint32(rt.SrcAlpha),
			uint32(rt.DestAlpha), uint32(rt.OpAlpha), uint32(rt.WriteMask))
	}
	return h.sum()
}

func OpaqueBlend() BlendDescriptor {
	var d BlendDescriptor
	for i := range d.RenderTargets {
		d.RenderTargets[i] = RenderTargetBlend{
			Src: BlendOne, Dest: BlendZero, Op: BlendOpAdd,
			SrcAlpha: BlendOne, DestAlpha: BlendZero, OpAlpha: BlendOpAdd,
			WriteMask: ColorWriteAll,
		}
	}
	return d
}

// PremultipliedAlphaBlend composites premultiplied colour over the target.
func PremultipliedAlphaBlend() BlendDescriptor {
	d := OpaqueBlend()
	d.RenderTargets[0] = RenderTargetBlend{
		Enable: true,
		Src:    BlendOne, Dest: BlendInvSrcAlpha, Op: BlendOpAdd,
		SrcAlpha: BlendOne, DestAlpha: BlendInvSrcAlpha, OpAlpha: BlendOpAdd,
		WriteMask: ColorWriteAll,
	}
	return d
}

type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
)

type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

/**
 * @brief Describes an immutable rasterizer state object.
 */
type RasterDescriptor struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClip             bool
	Scissor               bool
	Multisample           bool
	AntialiasedLine       bool
}

func (d *RasterDescriptor) Hash() uint64 {
	var h hasher
	h.u32(uint32(d.FillMode), uint32(d.CullMode), uint32(d.DepthBias))
	h.bool(d.FrontCounterClockwise)
	h.f32(d.DepthBiasClamp, d.SlopeScaledDepthBias)
	h.bool(d.DepthClip, d.Scissor, d.Multisample, d.AntialiasedLine)
	return h.sum()
}

func DefaultRaster() RasterDescriptor {
	return RasterDescriptor{FillMode: FillSolid, CullMode: CullBack, DepthClip: true}
}

type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrSat
	StencilDecrSat
	StencilInvert
	StencilIncr
	StencilDecr
)

type StencilFace struct {
	Fail      StencilOp
	DepthFail StencilOp
	Pass      StencilOp
	Func      CompareFunc
}

/**
 * @brief Describes an immutable depth-stencil state object.
 */
type DepthDescriptor struct {
	DepthEnable      bool
	DepthWrite       bool
	DepthFunc        CompareFunc
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        StencilFace
	BackFace         StencilFace
}

func (d *DepthDescriptor) Hash() uint64 {
	var h hasher
	h.bool(d.DepthEnable, d.DepthWrite, d.StencilEnable)
	h.u32(uint32(d.DepthFunc), uint32(d.StencilReadMask), uint32(d.StencilWriteMask))
	for _, f := range [2]StencilFace{d.FrontFace, d.BackFace} {
		h.u32(uint32(f.Fail), uint32(f.DepthFail), uint32(f.Pass), uint32(f.Func))
	}
	return h.sum()
}

func DefaultDepth() DepthDescriptor {
	return DepthDescriptor{
		DepthEnable:      true,
		DepthWrite:       true,
		DepthFunc:        CompareLess,
		StencilReadMask:  0xFF,
		StencilWriteMask: 0xFF,
		FrontFace:        StencilFace{Func: CompareAlways},
		BackFace:         StencilFace{Func: CompareAlways},
	}
}

/**
 * @brief One vertex attribute of an input layout.
 */
type InputElement struct {
	SemanticName      string
	SemanticIndex     uint32
	Format            Format
	InputSlot         uint32
	AlignedByteOffset uint32
	PerInstance       bool
	InstanceStepRate  uint32
}

/**
 * @brief Describes an input layout. Layouts are validated against the vertex
 * shader they are created with.
 */
type InputLayoutDescriptor struct {
	Elements []InputElement
}

func (d *InputLayoutDescriptor) Hash() uint64 {
	var h hasher
	for _, e := range d.Elements {
		h.str(e.SemanticName)
		h.u32(e.SemanticIndex, uint32(e.Format), e.InputSlot, e.AlignedByteOffset, e.InstanceStepRate)
		h.bool(e.PerInstance)
	}
	return h.sum()
}

func (d *InputLayoutDescriptor) Equal(other *InputLayoutDescriptor) bool {
	return slices.Equal(d.Elements, other.Elements)
}

// Stride returns the byte size of one vertex in slot.
func (d *InputLayoutDescriptor) Stride(slot uint32) uint32 {
	var stride uint32
	for _, e := range d.Elements {
		if e.InputSlot == slot {
			stride = max(stride, e.AlignedByteOffset+e.Format.BytesPerPixel())
		}
	}
	return stride
}
