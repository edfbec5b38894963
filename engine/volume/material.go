package volume

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/assets/loaders"
	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
	"golang.org/x/exp/rand"
)

const (
	cubeVertexCount = 36
	noiseSize       = 64
	// Samples per voxel along a ray.
	samplesPerVoxel = 2
	maxMarchSteps   = 4096
)

// cubeVertices returns the 12 triangles of the unit cube centred at the origin.
func cubeVertices() []emath.Vertex3D {
	corners := [8]emath.Vec3{
		{X: -0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: -0.5, Z: -0.5}, {X: 0.5, Y: 0.5, Z: -0.5}, {X: -0.5, Y: 0.5, Z: -0.5},
		{X: -0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: -0.5, Z: 0.5}, {X: 0.5, Y: 0.5, Z: 0.5}, {X: -0.5, Y: 0.5, Z: 0.5},
	}
	faces := [6][4]int{
		{0, 3, 2, 1}, {4, 5, 6, 7}, // back, front
		{0, 4, 7, 3}, {1, 2, 6, 5}, // left, right
		{0, 1, 5, 4}, {3, 7, 6, 2}, // bottom, top
	}
	out := make([]emath.Vertex3D, 0, cubeVertexCount)
	for _, f := range faces {
		for _, i := range [6]int{f[0], f[1], f[2], f[0], f[2], f[3]} {
			out = append(out, emath.Vertex3D{Position: corners[i]})
		}
	}
	return out
}

/**
 * @brief Draws a volume by ray marching the back faces of its bounding cube.
 */
type RayMarchMaterial struct {
	rm *renderer.ResourceManager
	cm *assets.ContentManager

	// Optional image whose red channel replaces the generated jitter noise.
	NoiseImage string

	vertexPath string
	pixelPath  string
	vertex     metadata.ShaderHandle
	pixel      metadata.ShaderHandle
	pipeline   metadata.PipelineHandle

	cube      metadata.BufferHandle
	constants metadata.BufferHandle
	noise     metadata.TextureHandle

	linear      metadata.SamplerHandle
	point       metadata.SamplerHandle
	noiseSample metadata.SamplerHandle
}

func NewRayMarchMaterial(rm *renderer.ResourceManager, cm *assets.ContentManager) *RayMarchMaterial {
	return &RayMarchMaterial{
		rm:        rm,
		cm:        cm,
		vertex:    metadata.InvalidShader,
		pixel:     metadata.InvalidShader,
		pipeline:  metadata.InvalidPipeline,
		cube:      metadata.InvalidBuffer,
		constants: metadata.InvalidBuffer,
		noise:     metadata.InvalidTexture,
	}
}

func (m *RayMarchMaterial) loadShader(path string) (metadata.ShaderHandle, error) {
	desc, err := assets.Load[*metadata.ShaderDescriptor](m.cm, path)
	if err != nil {
		return metadata.InvalidShader, err
	}
	h, err := m.rm.CreateShader(*desc)
	if err != nil {
		m.cm.Release(path)
	}
	return h, err
}

/**
 * @brief Creates the pipeline, the proxy cube, the jitter noise and the
 * samplers. seed drives the noise so frames are reproducible.
 */
func (m *RayMarchMaterial) Initialize(vertexPath, pixelPath string, seed uint64) error {
	var err error
	if m.vertex, err = m.loadShader(vertexPath); err != nil {
		return err
	}
	m.vertexPath = vertexPath
	if m.pixel, err = m.loadShader(pixelPath); err != nil {
		return err
	}
	m.pixelPath = pixelPath

	desc := metadata.GraphicsPipeline("raymarch", m.vertex, m.pixel)
	layout := metadata.InputLayoutDescriptor{Elements: []metadata.InputElement{
		{SemanticName: "POSITION", Format: metadata.FormatRGB32Float},
	}}
	if desc.InputLayout, err = m.rm.GetInputLayout(layout, m.vertex); err != nil {
		return err
	}
	if desc.Blend, err = m.rm.GetBlendState(metadata.PremultipliedAlphaBlend()); err != nil {
		return err
	}
	// Back faces only, so the march also starts when the eye is inside the cube.
	raster := metadata.DefaultRaster()
	raster.CullMode = metadata.CullFront
	if desc.Raster, err = m.rm.GetRasterState(raster); err != nil {
		return err
	}
	depth := metadata.DefaultDepth()
	depth.DepthWrite = false
	if desc.Depth, err = m.rm.GetDepthState(depth); err != nil {
		return err
	}
	desc.RenderTargets[0] = metadata.FormatRGBA8Unorm
	desc.DepthFormat = metadata.FormatD32Float
	if m.pipeline, err = m.rm.CreatePipeline(desc); err != nil {
		return err
	}

	var vertices bytes.Buffer
	if err := binary.Write(&vertices, binary.LittleEndian, cubeVertices()); err != nil {
		return err
	}
	if m.cube, err = m.rm.CreateBuffer(metadata.BufferDescriptor{
		ByteWidth:  uint32(vertices.Len()),
		Usage:      metadata.UsageImmutable,
		BindFlags:  metadata.BindVertexBuffer,
		ByteStride: layout.Stride(0),
		DebugName:  "raymarch-cube",
	}, vertices.Bytes()); err != nil {
		return err
	}
	if m.constants, err = m.rm.CreateBuffer(metadata.ConstantBuffer("raymarch-constants", rayMarchConstantsSize), nil); err != nil {
		return err
	}

	noise, width, height, err := m.noiseTexels(seed)
	if err != nil {
		return err
	}
	if m.noise, err = m.rm.CreateTexture(metadata.TextureDescriptor{
		Width:     width,
		Height:    height,
		MipLevels: 1,
		Format:    metadata.FormatR8Unorm,
		Usage:     metadata.UsageImmutable,
		BindFlags: metadata.BindShaderResource,
		Type:      metadata.TextureType2D,
		DebugName: "raymarch-noise",
	}, noise); err != nil {
		return err
	}

	if m.linear, err = m.rm.CreateSamplerState(metadata.LinearClampSampler()); err != nil {
		return err
	}
	if m.point, err = m.rm.CreateSamplerState(metadata.PointClampSampler()); err != nil {
		return err
	}
	wrap := metadata.PointClampSampler()
	wrap.AddressU, wrap.AddressV, wrap.AddressW = metadata.AddressWrap, metadata.AddressWrap, metadata.AddressWrap
	m.noiseSample, err = m.rm.CreateSamplerState(wrap)
	return err
}

// noiseTexels returns the R8 jitter texels, read from NoiseImage when set
// and generated from seed otherwise.
func (m *RayMarchMaterial) noiseTexels(seed uint64) ([]byte, uint32, uint32, error) {
	if m.NoiseImage == "" {
		rng := rand.New(rand.NewSource(seed))
		noise := make([]byte, noiseSize*noiseSize)
		for i := range noise {
			noise[i] = byte(rng.Uint32())
		}
		return noise, noiseSize, noiseSize, nil
	}

	img, err := assets.Load[*loaders.ImageData](m.cm, m.NoiseImage)
	if err != nil {
		core.LogError("noise image %s: %s", m.NoiseImage, err)
		return nil, 0, 0, err
	}
	defer m.cm.Release(m.NoiseImage)
	noise := make([]byte, img.Width*img.Height)
	for i := range noise {
		noise[i] = img.Pixels[i*4]
	}
	return noise, img.Width, img.Height, nil
}

// BoxExtent returns the half size of the box a volume of dims fills, its
// longest axis spanning one world unit.
func BoxExtent(dims emath.UVec3) emath.Vec3 {
	longest := float32(max(dims.X, dims.Y, dims.Z, 1))
	return emath.Vec3{
		X: float32(dims.X) / longest * 0.5,
		Y: float32(dims.Y) / longest * 0.5,
		Z: float32(dims.Z) / longest * 0.5,
	}
}

func (m *RayMarchMaterial) constantsFor(fr *renderer.ForwardRenderer, volume *Volume, grid *OccupancyGrid) rayMarchConstants {
	cam := fr.Camera()
	basis := cam.Basis()
	longest := float32(max(volume.Dims.X, volume.Dims.Y, volume.Dims.Z, 1))
	step := 1 / (longest * samplesPerVoxel)
	vpc := float32(1)
	if grid != nil {
		vpc = float32(grid.VoxelsPerCell)
	}
	return rayMarchConstants{
		Eye:           basis.Position,
		Aspect:        fr.Aspect(),
		Forward:       basis.Forward,
		TanHalfFov:    float32(math.Tan(float64(cam.FovY) / 2)),
		Right:         basis.Right,
		StepSize:      step,
		Up:            basis.Up,
		OpacityScale:  1.0 / samplesPerVoxel,
		Extent:        BoxExtent(volume.Dims),
		VoxelsPerCell: vpc,
		Dims:          emath.Vec3{X: float32(volume.Dims.X), Y: float32(volume.Dims.Y), Z: float32(volume.Dims.Z)},
		MaxSteps:      maxMarchSteps,
	}
}

/**
 * @brief Records the ray-march draw into the current frame. grid may be nil,
 * in which case no space is skipped.
 */
func (m *RayMarchMaterial) Draw(fr *renderer.ForwardRenderer, volume *Volume, transfer *TransferFunction, grid *OccupancyGrid) error {
	if !m.pipeline.IsValid() {
		return core.ErrNotInitialized
	}
	constants, err := encodeConstants(m.constantsFor(fr, volume, grid))
	if err != nil {
		return err
	}
	if err := m.rm.UpdateBuffer(m.constants, constants); err != nil {
		return err
	}

	occupancy, occupancySampler := metadata.InvalidTexture, metadata.InvalidSampler
	if grid != nil {
		occupancy, occupancySampler = grid.Texture, grid.Sampler
	}
	ps := metadata.ShaderStagePixel
	steps := []func() error{
		func() error { return m.rm.BindPipeline(m.pipeline) },
		func() error { return m.rm.BindVertexBuffer(0, m.cube, 0) },
		func() error { return m.rm.BindConstantBuffer(ps, 0, m.constants) },
		func() error { return m.rm.BindTexture(ps, 0, volume.Texture) },
		func() error { return m.rm.BindTexture(ps, 1, transfer.Texture()) },
		func() error { return m.rm.BindTexture(ps, 2, occupancy) },
		func() error { return m.rm.BindTexture(ps, 3, m.noise) },
		func() error { return m.rm.BindSampler(ps, 0, m.linear) },
		func() error { return m.rm.BindSampler(ps, 1, m.point) },
		func() error { return m.rm.BindSampler(ps, 2, occupancySampler) },
		func() error { return m.rm.BindSampler(ps, 3, m.noiseSample) },
		func() error { return m.rm.Draw(cubeVertexCount, 0) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	for slot := uint32(0); slot < 4; slot++ {
		m.rm.BindTexture(ps, slot, metadata.InvalidTexture)
	}
	return nil
}

func (m *RayMarchMaterial) Release() {
	if m.pipeline.IsValid() {
		m.rm.DestroyPipeline(m.pipeline)
	}
	for _, s := range []metadata.ShaderHandle{m.vertex, m.pixel} {
		if s.IsValid() {
			m.rm.DestroyShader(s)
		}
	}
	for _, path := range []string{m.vertexPath, m.pixelPath} {
		if path != "" {
			m.cm.Release(path)
		}
	}
	for _, b := range []metadata.BufferHandle{m.cube, m.constants} {
		if b.IsValid() {
			m.rm.DestroyBuffer(b)
		}
	}
	if m.noise.IsValid() {
		m.rm.DestroyTexture(m.noise)
	}
	*m = *NewRayMarchMaterial(m.rm, m.cm)
}
