package systems

import (
	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/soft"
	"github.com/spaghettifunk/snowfall/engine/renderer/vulkan"
)

const maxCameraCount = 16

/**
 * @brief Owns the engine services and wires them together. Services are passed
 * explicitly to whoever needs them; nothing is reachable through globals.
 */
type SystemManager struct {
	config *config.Config

	jobSystem        *JobSystem
	cameraSystem     *CameraSystem
	device           *soft.Device
	resourceManager  *renderer.ResourceManager
	contentManager   *assets.ContentManager
	forwardRenderer  *renderer.ForwardRenderer
	barrierRecorder  *vulkan.BarrierRecorder
	events           *core.EventSystem
	watchingAssetDir bool
}

func NewSystemManager(cfg *config.Config, events *core.EventSystem) (*SystemManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	js, err := NewJobSystem(cfg.Device.Workers, cfg.Device.JobQueueSize)
	if err != nil {
		return nil, err
	}

	device := soft.NewDevice(soft.Config{
		CommandQueueSize: cfg.Device.CommandQueueSize,
		Scheduler:        js,
	})

	rm, err := renderer.NewResourceManager(renderer.ResourceManagerConfig{
		MaxBufferCount:      cfg.Pools.Buffers,
		MaxTextureCount:     cfg.Pools.Textures,
		MaxShaderCount:      cfg.Pools.Shaders,
		MaxPipelineCount:    cfg.Pools.Pipelines,
		MaxSamplerCount:     cfg.Pools.Samplers,
		MaxBlendCount:       cfg.Pools.Blends,
		MaxRasterCount:      cfg.Pools.Rasters,
		MaxDepthCount:       cfg.Pools.Depths,
		MaxInputLayoutCount: cfg.Pools.InputLayouts,
	}, device)
	if err != nil {
		js.Shutdown()
		return nil, err
	}

	cs, err := NewCameraSystem(maxCameraCount)
	if err != nil {
		rm.Shutdown()
		js.Shutdown()
		return nil, err
	}

	sm := &SystemManager{
		config:          cfg,
		jobSystem:       js,
		cameraSystem:    cs,
		device:          device,
		resourceManager: rm,
		contentManager:  assets.NewContentManager(assets.ContentManagerConfig{Root: cfg.Assets.Root}),
		events:          events,
	}

	if cfg.Device.BarrierTrace {
		sm.barrierRecorder = vulkan.NewBarrierRecorder(true)
		rm.SetBarrierSink(sm.barrierRecorder)
	}

	fr, err := renderer.NewForwardRenderer(renderer.ForwardRendererConfig{
		Width:      cfg.Application.StartWidth,
		Height:     cfg.Application.StartHeight,
		ClearColor: [4]float32{0, 0, 0, 1},
	}, rm)
	if err != nil {
		sm.Shutdown()
		return nil, err
	}
	fr.SetCamera(cs.GetDefault())
	sm.forwardRenderer = fr

	return sm, nil
}

/**
 * @brief Starts watching the asset root when configured to.
 */
func (sm *SystemManager) Initialize() error {
	if sm.config.Assets.Watch && !sm.watchingAssetDir {
		if err := sm.contentManager.Watch("."); err != nil {
			core.LogWarn("asset hot reload disabled: %s", err)
			return nil
		}
		sm.watchingAssetDir = true
	}
	return nil
}

func (sm *SystemManager) Config() *config.Config { return sm.config }
func (sm *SystemManager) JobSystem() *JobSystem { return sm.jobSystem }
func (sm *SystemManager) CameraSystem() *CameraSystem { return sm.cameraSystem }
func (sm *SystemManager) Device() *soft.Device { return sm.device }
func (sm *SystemManager) ResourceManager() *renderer.ResourceManager { return sm.resourceManager }
func (sm *SystemManager) ContentManager() *assets.ContentManager { return sm.contentManager }
func (sm *SystemManager) ForwardRenderer() *renderer.ForwardRenderer { return sm.forwardRenderer }
func (sm *SystemManager) Events() *core.EventSystem { return sm.events }

// BarrierRecorder is nil unless barrier tracing is enabled.
func (sm *SystemManager) BarrierRecorder() *vulkan.BarrierRecorder { return sm.barrierRecorder }

/**
 * @brief Runs once per frame on the main thread: applies hot-reloaded assets.
 */
func (sm *SystemManager) Update() {
	if n := sm.contentManager.Poll(); n > 0 && sm.events != nil {
		sm.events.Fire(core.EventContext{Type: core.EVENT_CODE_ASSET_RELOADED, Data: n}, sm)
	}
	if sm.barrierRecorder != nil {
		if n := len(sm.barrierRecorder.Drain()); n > 0 {
			core.LogDebug("frame issued %d image barriers", n)
		}
		if n := len(sm.barrierRecorder.DrainCreated()); n > 0 {
			core.LogDebug("frame created %d device objects", n)
		}
	}
}

func (sm *SystemManager) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	return sm.forwardRenderer.Resize(width, height)
}

/**
 * @brief Shuts every service down in reverse dependency order.
 */
func (sm *SystemManager) Shutdown() error {
	var first error
	keep := func(err error) {
		if err != nil {
			core.LogError(err.Error())
			if first == nil {
				first = err
			}
		}
	}
	if sm.forwardRenderer != nil {
		keep(sm.forwardRenderer.Shutdown())
	}
	keep(sm.contentManager.Shutdown())
	keep(sm.resourceManager.Shutdown())
	keep(sm.device.Shutdown())
	keep(sm.jobSystem.Shutdown())
	return first
}
