package engine

import (
	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/systems"
)

/**
 * @brief The callbacks and services of the application driven by the engine.
 * SystemManager, Events and Input are filled in by Engine.Initialize before
 * FnInitialize runs.
 */
type Game struct {
	Config        *config.Config
	SystemManager *systems.SystemManager
	Events        *core.EventSystem
	Input         *core.InputState
	State         interface{}
	FnInitialize  Initialize
	FnUpdate      Update
	FnRender      Render
	FnOnResize    OnResize
	FnShutdown    Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(fr *renderer.ForwardRenderer, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
