package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/platform"
	"github.com/spaghettifunk/snowfall/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released every service
	EngineStageShutdown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *config.Config
	isRunning     atomic.Bool
	isSuspended   bool
	platform      *platform.Platform
	systemManager *systems.SystemManager
	events        *core.EventSystem
	input         *core.InputState
	clock         *core.Clock
	metrics       *core.Metrics
	width         uint32
	height        uint32
	lastTime      time.Duration
	frameCount    uint64
}

/**
 * @brief Creates the engine services for the given game. The window is only
 * created when the configuration is not headless.
 */
func New(g *Game) (*Engine, error) {
	if g.Config == nil {
		g.Config = config.Default()
	}
	cfg := g.Config

	events := core.NewEventSystem()
	input := core.NewInputState(events)

	sm, err := systems.NewSystemManager(cfg, events)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		currentStage:  EngineStageUninitialized,
		gameInstance:  g,
		config:        cfg,
		systemManager: sm,
		events:        events,
		input:         input,
		clock:         core.NewClock(),
		metrics:       core.NewMetrics(),
		width:         cfg.Application.StartWidth,
		height:        cfg.Application.StartHeight,
	}
	if !cfg.Application.Headless {
		e.platform = platform.New(input, events)
	}
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.events.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	if e.platform != nil {
		app := e.config.Application
		if err := e.platform.Startup(app.Name, app.StartPosX, app.StartPosY, app.StartWidth, app.StartHeight); err != nil {
			return err
		}
	}

	if err := e.systemManager.Initialize(); err != nil {
		return err
	}

	e.gameInstance.SystemManager = e.systemManager
	e.gameInstance.Events = e.events
	e.gameInstance.Input = e.input

	if err := e.gameInstance.FnInitialize(); err != nil {
		return err
	}
	if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

/**
 * @brief Runs the frame loop until the window closes, Stop is called, or the
 * configured number of frames has been rendered.
 */
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine run before initialize: %w", core.ErrNotInitialized)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	maxFrames := e.config.Application.MaxFrames
	fr := e.systemManager.ForwardRenderer()

	for e.isRunning.Load() {
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()
		frameStart := time.Now()

		e.systemManager.Update()

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("game update failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		if err := fr.BeginFrame(); err != nil {
			return err
		}
		if err := e.gameInstance.FnRender(fr, delta); err != nil {
			core.LogError("game render failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}
		if err := fr.EndFrame(); err != nil {
			return err
		}

		e.metrics.Update(time.Since(frameStart))
		e.frameCount++
		if e.platform != nil && e.frameCount%60 == 0 {
			e.platform.SetTitle(fmt.Sprintf("%s (%.0f fps, %.2f ms)", e.config.Application.Name, e.metrics.FPS(), e.metrics.FrameTime()))
		}

		// Input is the last thing to be updated before this frame ends.
		e.input.Update()

		e.lastTime = currentTime

		if maxFrames > 0 && e.frameCount >= maxFrames {
			core.LogInfo("rendered %d frames, stopping", e.frameCount)
			e.isRunning.Store(false)
		}
	}

	return nil
}

// Stop asks the frame loop to exit after the current frame. Safe to call
// from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) FrameCount() uint64 {
	return e.frameCount
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if e.gameInstance.FnShutdown != nil {
		keep(e.gameInstance.FnShutdown())
	}
	keep(e.systemManager.Shutdown())
	keep(e.events.Shutdown())
	if e.platform != nil {
		keep(e.platform.Shutdown())
	}

	e.currentStage = EngineStageShutdown
	return first
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onEvent(context core.EventContext, sender, listener interface{}) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}

func (e *Engine) onKey(context core.EventContext, sender, listener interface{}) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// Technically firing an event to itself, but there may be other listeners.
		e.events.Fire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT}, e)
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext, sender, listener interface{}) bool {
	re, ok := context.Data.(*core.ResizeEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if re.Width == e.width && re.Height == e.height {
		return false
	}
	e.width, e.height = re.Width, re.Height
	core.LogDebug("Window resize: %d, %d", re.Width, re.Height)

	// Handle minimization
	if re.Width == 0 || re.Height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.systemManager.OnResize(re.Width, re.Height); err != nil {
		core.LogError(err.Error())
	}
	if err := e.gameInstance.FnOnResize(re.Width, re.Height); err != nil {
		core.LogError(err.Error())
	}
	return false
}
