package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
)

type countingGame struct {
	initialized, updates, renders, resizes, shutdowns int
	failUpdate                                        error
}

func headlessConfig(t *testing.T, frames uint64) *config.Config {
	cfg := config.Default()
	cfg.Application.Headless = true
	cfg.Application.MaxFrames = frames
	cfg.Application.StartWidth = 16
	cfg.Application.StartHeight = 16
	cfg.Assets.Root = t.TempDir()
	cfg.Assets.Watch = false
	cfg.Device.Workers = 2
	return cfg
}

func (c *countingGame) game(cfg *config.Config) *Game {
	return &Game{
		Config:       cfg,
		FnInitialize: func() error { c.initialized++; return nil },
		FnUpdate: func(float64) error {
			c.updates++
			return c.failUpdate
		},
		FnRender:   func(*renderer.ForwardRenderer, float64) error { c.renders++; return nil },
		FnOnResize: func(uint32, uint32) error { c.resizes++; return nil },
		FnShutdown: func() error { c.shutdowns++; return nil },
	}
}

func TestHeadlessEngineRendersTheConfiguredFrames(t *testing.T) {
	c := &countingGame{}
	g := c.game(headlessConfig(t, 3))
	e, err := New(g)
	require.NoError(t, err)

	require.NoError(t, e.Initialize())
	assert.NotNil(t, g.SystemManager)
	assert.NotNil(t, g.Events)
	assert.NotNil(t, g.Input)
	assert.Equal(t, 1, c.initialized)
	assert.Equal(t, 1, c.resizes)

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.FrameCount())
	assert.Equal(t, 3, c.updates)
	assert.Equal(t, 3, c.renders)
	assert.Equal(t, uint64(3), g.SystemManager.ForwardRenderer().FrameNumber())

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, c.shutdowns)
}

func TestRunNeedsInitialize(t *testing.T) {
	c := &countingGame{}
	e, err := New(c.game(headlessConfig(t, 1)))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Run(), core.ErrNotInitialized)
	require.NoError(t, e.Shutdown())
}

func TestEscapeQuitsAndUpdateErrorsStopTheLoop(t *testing.T) {
	c := &countingGame{}
	g := c.game(headlessConfig(t, 0))
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	g.FnUpdate = func(float64) error {
		c.updates++
		if c.updates == 2 {
			g.Input.ProcessKey(core.KEY_ESCAPE, true)
		}
		return nil
	}
	require.NoError(t, e.Run())
	assert.Equal(t, 2, c.updates)

	boom := errors.New("boom")
	g.FnUpdate = func(float64) error { return boom }
	e.currentStage = EngineStageInitialized
	assert.ErrorIs(t, e.Run(), boom)
}

func TestResizeEventsResizeTheFrame(t *testing.T) {
	c := &countingGame{}
	g := c.game(headlessConfig(t, 1))
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.ResizeEvent{Width: 8, Height: 4}}, nil)
	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(8), w)
	assert.Equal(t, uint32(4), h)
	assert.Equal(t, uint32(8), g.SystemManager.ForwardRenderer().Width())
	assert.Equal(t, 2, c.resizes)

	e.events.Fire(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.ResizeEvent{}}, nil)
	assert.True(t, e.isSuspended)
}

func TestLoadApplicationConfigDefaults(t *testing.T) {
	cfg, err := LoadApplicationConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = LoadApplicationConfig("does-not-exist.toml")
	assert.Error(t, err)
}
