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
 * @brief A compute shader and its pipeline, loaded from a .shadercfg through
 * the content manager and rebuilt when the file changes on disk.
 */
type computeProgram struct {
	rm *renderer.ResourceManager
	cm *assets.ContentManager

	path     string
	shader   metadata.ShaderHandle
	pipeline metadata.PipelineHandle
	threads  emath.UVec3
}

func newComputeProgram(rm *renderer.ResourceManager, cm *assets.ContentManager) computeProgram {
	return computeProgram{
		rm:       rm,
		cm:       cm,
		shader:   metadata.InvalidShader,
		pipeline: metadata.InvalidPipeline,
	}
}

func (p *computeProgram) ready() bool {
	return p.pipeline.IsValid()
}

// load is a no-op when path is already loaded.
func (p *computeProgram) load(path string) error {
	if p.path == path && p.ready() {
		return nil
	}
	desc, err := assets.Load[*metadata.ShaderDescriptor](p.cm, path)
	if err != nil {
		return err
	}
	shader, pipeline, err := p.build(desc)
	if err != nil {
		p.cm.Release(path)
		return err
	}
	p.release()
	p.path = path
	p.shader, p.pipeline = shader, pipeline
	p.threads = threadsOf(desc)
	p.cm.OnReload(path, p.onReload)
	core.LogDebug("compute program %s ready (%s)", desc.Name, path)
	return nil
}

func threadsOf(desc *metadata.ShaderDescriptor) emath.UVec3 {
	return emath.UVec3{X: emath.MaxOne(desc.NumThreads[0]), Y: emath.MaxOne(desc.NumThreads[1]), Z: emath.MaxOne(desc.NumThreads[2])}
}

func (p *computeProgram) build(desc *metadata.ShaderDescriptor) (metadata.ShaderHandle, metadata.PipelineHandle, error) {
	if desc.Stage != metadata.ShaderStageCompute {
		return metadata.InvalidShader, metadata.InvalidPipeline,
			fmt.Errorf("program %q is a %s shader: %w", desc.Name, desc.Stage, core.ErrInvalidDescriptor)
	}
	shader, err := p.rm.CreateShader(*desc)
	if err != nil {
		return metadata.InvalidShader, metadata.InvalidPipeline, err
	}
	pipeline, err := p.rm.CreatePipeline(metadata.ComputePipeline(desc.Name, shader))
	if err != nil {
		p.rm.DestroyShader(shader)
		return metadata.InvalidShader, metadata.InvalidPipeline, err
	}
	return shader, pipeline, nil
}

func (p *computeProgram) onReload(path string, data interface{}) {
	desc, ok := data.(*metadata.ShaderDescriptor)
	if !ok {
		return
	}
	shader, pipeline, err := p.build(desc)
	if err != nil {
		core.LogError("keeping previous program for %s: %s", path, err)
		return
	}
	p.rm.DestroyPipeline(p.pipeline)
	p.rm.DestroyShader(p.shader)
	p.shader, p.pipeline = shader, pipeline
	p.threads = threadsOf(desc)
}

// groups returns the thread groups covering dims.
func (p *computeProgram) groups(dims emath.UVec3) emath.UVec3 {
	return dims.CeilDiv(p.threads)
}

func (p *computeProgram) release() {
	if p.pipeline.IsValid() {
		p.rm.DestroyPipeline(p.pipeline)
	}
	if p.shader.IsValid() {
		p.rm.DestroyShader(p.shader)
	}
	if p.path != "" {
		p.cm.Release(p.path)
	}
	p.path = ""
	p.shader, p.pipeline = metadata.InvalidShader, metadata.InvalidPipeline
}
