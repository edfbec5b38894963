package volume

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
)

type PipelineConfig struct {
	NormalsProgram   string
	OccupancyProgram string
	RayMarchVertex   string
	RayMarchPixel    string
	VoxelsPerCell    uint32
	// Scan 16-bit ranges on the job system.
	AsyncRangeScan bool
	// Seed of the ray jitter noise.
	NoiseSeed uint64
	// Optional image the jitter noise is read from instead.
	NoiseImage string
}

/** @brief The engine services the volume pipeline runs on. */
type Services struct {
	Resources *renderer.ResourceManager
	Content   *assets.ContentManager
	// Required when AsyncRangeScan is set.
	Jobs JobSubmitter
	// Optional. Receives the volume events.
	Events *core.EventSystem
}

var _ renderer.Renderable = (*Pipeline)(nil)

/**
 * @brief Direct volume rendering end to end: ingestion, transfer function
 * editing, occupancy rebuilds and the ray-march draw.
 */
type Pipeline struct {
	config   PipelineConfig
	services Services

	ingestor  *Ingestor
	occupancy *OccupancyBuilder
	transfer  *TransferFunction
	material  *RayMarchMaterial

	volume *Volume
	grid   *OccupancyGrid
	// Transfer function file held open for hot reload.
	transferPath string
}

func NewPipeline(config PipelineConfig, services Services) (*Pipeline, error) {
	if services.Resources == nil || services.Content == nil {
		return nil, fmt.Errorf("volume pipeline needs resources and content: %w", core.ErrNotInitialized)
	}
	if config.AsyncRangeScan && services.Jobs == nil {
		return nil, fmt.Errorf("async range scan without a job system: %w", core.ErrNotInitialized)
	}
	services.Content.RegisterLoader(assets.AssetTypeTransferFunction, &TransferFileLoader{})

	occupancy, err := NewOccupancyBuilder(services.Resources, services.Content, config.VoxelsPerCell)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		config:    config,
		services:  services,
		ingestor:  NewIngestor(services.Resources, services.Content),
		occupancy: occupancy,
		transfer:  NewTransferFunction(services.Resources),
		material:  NewRayMarchMaterial(services.Resources, services.Content),
	}
	if err := p.initialize(); err != nil {
		p.Shutdown()
		return nil, err
	}
	return p, nil
}

func (p *Pipeline) initialize() error {
	if err := p.ingestor.Initialize(p.config.NormalsProgram); err != nil {
		return err
	}
	if err := p.occupancy.Initialize(p.config.OccupancyProgram); err != nil {
		return err
	}
	p.material.NoiseImage = p.config.NoiseImage
	if err := p.material.Initialize(p.config.RayMarchVertex, p.config.RayMarchPixel, p.config.NoiseSeed); err != nil {
		return err
	}
	return p.transfer.GenerateTransferFunction()
}

func (p *Pipeline) Volume() *Volume                     { return p.volume }
func (p *Pipeline) Occupancy() *OccupancyGrid           { return p.grid }
func (p *Pipeline) TransferFunction() *TransferFunction { return p.transfer }

func (p *Pipeline) fire(code core.EventCode, data interface{}) {
	if p.services.Events != nil {
		p.services.Events.Fire(core.EventContext{Type: code, Data: data}, p)
	}
}

/**
 * @brief Loads a raw volume through the content manager, ingests it and builds
 * its occupancy grid. A previously loaded volume is replaced.
 */
func (p *Pipeline) Load(path string) error {
	raw, err := assets.Load[*RawVolume](p.services.Content, path)
	if err != nil {
		return err
	}
	defer p.services.Content.Release(path)
	if !raw.IsLoaded() {
		return fmt.Errorf("%s: %w", path, core.ErrVolumeNotLoaded)
	}

	var volume *Volume
	if p.config.AsyncRangeScan && raw.Format.Is16Bit() {
		result := <-GetRangeAsync(p.services.Jobs, raw)
		if result.Err != nil {
			return result.Err
		}
		volume, err = p.ingestor.GenerateVolumeWithRange(raw, result.Range)
	} else {
		volume, err = p.ingestor.GenerateVolume(raw)
	}
	if err != nil {
		return err
	}

	p.ingestor.DestroyVolume(p.volume)
	p.volume = volume
	p.fire(core.EVENT_CODE_VOLUME_LOADED, volume)
	return p.rebuildOccupancy()
}

/**
 * @brief Reads the transfer function at path through the content manager and
 * follows later edits of the file. Falls back to the default ramp.
 */
func (p *Pipeline) LoadTransferFunction(path string) error {
	nodes, err := assets.Load[[]TransferNode](p.services.Content, path)
	if err != nil {
		core.LogWarn("transfer function %s unusable, using the default ramp: %s", path, err)
		return p.transfer.SetNodes(DefaultNodes())
	}
	p.releaseTransferFile()
	p.transferPath = path
	p.services.Content.OnReload(path, func(_ string, data interface{}) {
		if nodes, ok := data.([]TransferNode); ok {
			p.transfer.SetNodes(nodes)
		}
	})
	return p.transfer.SetNodes(nodes)
}

func (p *Pipeline) releaseTransferFile() {
	if p.transferPath != "" {
		p.services.Content.Release(p.transferPath)
		p.transferPath = ""
	}
}

func (p *Pipeline) rebuildOccupancy() error {
	if p.volume == nil {
		return nil
	}
	grid, err := p.occupancy.GenerateVolumeGrid(p.volume, p.transfer.Texture())
	if err != nil {
		return err
	}
	p.grid = grid
	p.fire(core.EVENT_CODE_OCCUPANCY_REBUILT, grid)
	return nil
}

/**
 * @brief Applies transfer function edits. The occupancy grid is rebuilt only
 * once the edit is finished, not on every drag step.
 */
func (p *Pipeline) Update() error {
	changed, err := p.transfer.Update()
	if err != nil || !changed {
		return err
	}
	p.fire(core.EVENT_CODE_TRANSFER_FUNCTION_CHANGED, p.transfer)
	return p.rebuildOccupancy()
}

// Render records the ray-march draw. It does nothing until a volume is loaded.
func (p *Pipeline) Render(fr *renderer.ForwardRenderer) error {
	if p.volume == nil {
		return nil
	}
	return p.material.Draw(fr, p.volume, p.transfer, p.grid)
}

func (p *Pipeline) Shutdown() {
	p.ingestor.DestroyVolume(p.volume)
	p.volume, p.grid = nil, nil
	p.releaseTransferFile()
	p.material.Release()
	p.occupancy.Release()
	p.transfer.Release()
	p.ingestor.Release()
}
