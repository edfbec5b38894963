package renderer

import (
	"fmt"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/components"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

type ForwardRendererConfig struct {
	Width      uint32
	Height     uint32
	ClearColor [4]float32
}

/** @brief Anything that records draws into the frame. */
type Renderable interface {
	Render(fr *ForwardRenderer) error
}

/**
 * @brief Renders a frame into an offscreen colour target and resolves it into
 * the backbuffer with a full-screen blit.
 */
type ForwardRenderer struct {
	rm     *ResourceManager
	config ForwardRendererConfig
	camera *components.Camera

	color      metadata.TextureHandle
	depth      metadata.TextureHandle
	backbuffer metadata.TextureHandle

	frameNumber uint64
	inFrame     bool
}

func NewForwardRenderer(config ForwardRendererConfig, rm *ResourceManager) (*ForwardRenderer, error) {
	fr := &ForwardRenderer{
		rm:         rm,
		config:     config,
		camera:     components.NewCamera(),
		color:      metadata.InvalidTexture,
		depth:      metadata.InvalidTexture,
		backbuffer: metadata.InvalidTexture,
	}
	if err := fr.createTargets(); err != nil {
		return nil, err
	}
	return fr, nil
}

func (fr *ForwardRenderer) createTargets() error {
	target := func(name string, format metadata.Format, bind metadata.BindFlags) (metadata.TextureHandle, error) {
		return fr.rm.CreateTexture(metadata.TextureDescriptor{
			Width:     fr.config.Width,
			Height:    fr.config.Height,
			MipLevels: 1,
			Format:    format,
			BindFlags: bind,
			Type:      metadata.TextureType2D,
			DebugName: name,
		}, nil)
	}
	var err error
	if fr.color, err = target("frame-color", metadata.FormatRGBA8Unorm, metadata.BindRenderTarget|metadata.BindShaderResource); err != nil {
		return err
	}
	if fr.depth, err = target("frame-depth", metadata.FormatD32Float, metadata.BindDepthStencil); err != nil {
		return err
	}
	if fr.backbuffer, err = target("backbuffer", metadata.FormatBGRA8Unorm, metadata.BindRenderTarget); err != nil {
		return err
	}
	return nil
}

func (fr *ForwardRenderer) destroyTargets() {
	fr.rm.DestroyTexture(fr.color)
	fr.rm.DestroyTexture(fr.depth)
	fr.rm.DestroyTexture(fr.backbuffer)
}

func (fr *ForwardRenderer) Resources() *ResourceManager {
	return fr.rm
}

func (fr *ForwardRenderer) Camera() *components.Camera {
	return fr.camera
}

// SetCamera replaces the camera the frame is rendered from. Nil is ignored.
func (fr *ForwardRenderer) SetCamera(c *components.Camera) {
	if c != nil {
		fr.camera = c
	}
}

func (fr *ForwardRenderer) Width() uint32 {
	return fr.config.Width
}

func (fr *ForwardRenderer) Height() uint32 {
	return fr.config.Height
}

func (fr *ForwardRenderer) Aspect() float32 {
	return float32(fr.config.Width) / float32(max(fr.config.Height, 1))
}

func (fr *ForwardRenderer) FrameNumber() uint64 {
	return fr.frameNumber
}

func (fr *ForwardRenderer) Backbuffer() metadata.TextureHandle {
	return fr.backbuffer
}

// Resize recreates every frame target.
func (fr *ForwardRenderer) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if width == fr.config.Width && height == fr.config.Height {
		return nil
	}
	fr.destroyTargets()
	fr.config.Width, fr.config.Height = width, height
	core.LogDebug("forward renderer resized to %dx%d", width, height)
	return fr.createTargets()
}

func (fr *ForwardRenderer) BeginFrame() error {
	if fr.inFrame {
		return fmt.Errorf("frame %d already begun: %w", fr.frameNumber, core.ErrUnsupportedOperation)
	}
	if err := fr.rm.BindRenderTargets([]metadata.TextureHandle{fr.color}, fr.depth); err != nil {
		return err
	}
	if err := fr.rm.ClearRenderTarget(fr.color, fr.config.ClearColor); err != nil {
		return err
	}
	if err := fr.rm.ClearDepth(fr.depth, 1); err != nil {
		return err
	}
	fr.inFrame = true
	return nil
}

// Submit records the draws of r into the current frame.
func (fr *ForwardRenderer) Submit(r Renderable) error {
	if !fr.inFrame {
		return fmt.Errorf("submit outside a frame: %w", core.ErrUnsupportedOperation)
	}
	return r.Render(fr)
}

// EndFrame resolves the colour target into the backbuffer and executes the frame.
func (fr *ForwardRenderer) EndFrame() error {
	if !fr.inFrame {
		return fmt.Errorf("end of a frame that was not begun: %w", core.ErrUnsupportedOperation)
	}
	fr.inFrame = false
	if err := fr.rm.Transition(fr.color, metadata.StateShaderResource); err != nil {
		return err
	}
	if err := fr.rm.BlitToBuffer(fr.color, fr.backbuffer); err != nil {
		return err
	}
	if err := fr.rm.Transition(fr.color, metadata.StateRenderTarget); err != nil {
		return err
	}
	fr.frameNumber++
	return fr.rm.Device().Flush()
}

// ReadBackbuffer returns the last presented frame, tightly packed BGRA8.
func (fr *ForwardRenderer) ReadBackbuffer() ([]byte, error) {
	if err := fr.rm.Transition(fr.backbuffer, metadata.StateCopySource); err != nil {
		return nil, err
	}
	data, err := fr.rm.GetTextureData(fr.backbuffer)
	if terr := fr.rm.Transition(fr.backbuffer, metadata.StateRenderTarget); terr != nil && err == nil {
		err = terr
	}
	return data, err
}

func (fr *ForwardRenderer) Shutdown() error {
	fr.destroyTargets()
	return nil
}
