package testbed

import (
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/snowfall/engine"
	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/volume"
)

const (
	// Pick radius of a transfer node, in curve units (intensity steps).
	nodePickRadius = 6
	orbitSpeed     = 0.01
	zoomStep       = 0.1
)

/**
 * @brief The DirectVolumeRenderer sample: loads one raw volume, renders it
 * with the ray marcher and lets the mouse edit the transfer function.
 *
 * Controls: left drag moves the node under the cursor or adds one, right
 * drag orbits, the wheel zooms, Delete removes the hovered node, S saves the
 * transfer function, E exports debug slices and R resets the camera.
 */
type DirectVolumeRenderer struct {
	*engine.Game
}

type rendererState struct {
	pipeline *volume.Pipeline

	width  uint32
	height uint32

	orbiting bool
	exported bool
}

func NewDirectVolumeRenderer(cfg *config.Config) *DirectVolumeRenderer {
	g := &DirectVolumeRenderer{
		Game: &engine.Game{
			Config: cfg,
			State:  &rendererState{},
		},
	}

	g.FnInitialize = g.Initialize
	g.FnUpdate = g.Update
	g.FnRender = g.Render
	g.FnOnResize = g.OnResize
	g.FnShutdown = g.Shutdown

	return g
}

func (g *DirectVolumeRenderer) state() *rendererState {
	return g.State.(*rendererState)
}

func (g *DirectVolumeRenderer) Initialize() error {
	if g.SystemManager == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers: %w", core.ErrNotInitialized)
	}
	sm := g.SystemManager
	vc := g.Config.Volume

	volume.RegisterKernels(sm.Device())

	p, err := volume.NewPipeline(volume.PipelineConfig{
		NormalsProgram:   vc.NormalsProgram,
		OccupancyProgram: vc.OccupancyProgram,
		RayMarchVertex:   vc.RayMarchVertex,
		RayMarchPixel:    vc.RayMarchPixel,
		VoxelsPerCell:    vc.VoxelsPerCell,
		AsyncRangeScan:   vc.AsyncRangeScan,
		NoiseSeed:        vc.NoiseSeed,
		NoiseImage:       vc.NoiseImage,
	}, volume.Services{
		Resources: sm.ResourceManager(),
		Content:   sm.ContentManager(),
		Jobs:      sm.JobSystem(),
		Events:    g.Events,
	})
	if err != nil {
		core.LogError("failed to create the volume pipeline: %s", err)
		return err
	}
	s := g.state()
	s.pipeline = p

	if vc.TransferFunction != "" {
		if err := p.LoadTransferFunction(vc.TransferFunction); err != nil {
			return err
		}
	}
	if err := p.Load(vc.Path); err != nil {
		core.LogError("failed to load volume %s: %s", vc.Path, err)
		return err
	}

	g.Events.Register(core.EVENT_CODE_BUTTON_PRESSED, g, g.onButton)
	g.Events.Register(core.EVENT_CODE_BUTTON_RELEASED, g, g.onButton)
	g.Events.Register(core.EVENT_CODE_MOUSE_MOVED, g, g.onMouseMove)
	g.Events.Register(core.EVENT_CODE_MOUSE_WHEEL, g, g.onWheel)
	g.Events.Register(core.EVENT_CODE_KEY_PRESSED, g, g.onKey)
	g.Events.Register(core.EVENT_CODE_ASSET_RELOADED, g, g.onAssetReloaded)

	return nil
}

func (g *DirectVolumeRenderer) Update(deltaTime float64) error {
	s := g.state()
	if err := s.pipeline.Update(); err != nil {
		return err
	}
	if !s.exported && g.Config.Volume.ExportDir != "" {
		s.exported = true
		g.export()
	}
	return nil
}

func (g *DirectVolumeRenderer) Render(fr *renderer.ForwardRenderer, deltaTime float64) error {
	return fr.Submit(g.state().pipeline)
}

func (g *DirectVolumeRenderer) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width, s.height = width, height
	return nil
}

func (g *DirectVolumeRenderer) Shutdown() error {
	if s := g.state(); s.pipeline != nil {
		s.pipeline.Shutdown()
		s.pipeline = nil
	}
	return nil
}

// curvePoint maps a window position onto the transfer function plot:
// intensity along x, opacity up the y axis.
func curvePoint(x, y int32, width, height uint32) (float32, float32) {
	if width < 2 || height < 2 {
		return 0, 0
	}
	intensity := float32(x) / float32(width-1) * 255
	opacity := 1 - float32(y)/float32(height-1)
	return min(max(intensity, 0), 255), min(max(opacity, 0), 1)
}

// greyNode is the node added by a click on an empty part of the plot.
func greyNode(intensity, opacity float32) volume.TransferNode {
	grey := intensity / 255
	return volume.TransferNode{
		Intensity: uint32(intensity + 0.5),
		Opacity:   opacity,
		R:         grey,
		G:         grey,
		B:         grey,
		Roughness: 1,
	}
}

func (g *DirectVolumeRenderer) cursor() (float32, float32) {
	s := g.state()
	x, y := g.Input.MousePosition()
	return curvePoint(x, y, s.width, s.height)
}

func (g *DirectVolumeRenderer) onButton(context core.EventContext, sender, listener interface{}) bool {
	me, ok := context.Data.(*core.MouseEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	s := g.state()
	tf := s.pipeline.TransferFunction()
	pressed := context.Type == core.EVENT_CODE_BUTTON_PRESSED

	switch me.Button {
	case core.BUTTON_LEFT:
		if !pressed {
			tf.EndDrag()
			return true
		}
		intensity, opacity := g.cursor()
		i := tf.NodeAt(intensity, opacity, nodePickRadius)
		if i < 0 {
			i = tf.AddNode(greyNode(intensity, opacity))
		}
		if err := tf.BeginDrag(i); err != nil {
			core.LogWarn("cannot drag transfer node %d: %s", i, err)
		}
		return true
	case core.BUTTON_RIGHT:
		s.orbiting = pressed
		return true
	}
	return false
}

func (g *DirectVolumeRenderer) onMouseMove(context core.EventContext, sender, listener interface{}) bool {
	s := g.state()
	tf := s.pipeline.TransferFunction()
	if tf.IsUserInteracting() {
		tf.DragTo(g.cursor())
		return true
	}
	if s.orbiting {
		x, y := g.Input.MousePosition()
		px, py := g.Input.PreviousMousePosition()
		camera := g.SystemManager.ForwardRenderer().Camera()
		camera.Yaw(float32(px-x) * orbitSpeed)
		camera.Pitch(float32(y-py) * orbitSpeed)
		return true
	}
	return false
}

func (g *DirectVolumeRenderer) onWheel(context core.EventContext, sender, listener interface{}) bool {
	me, ok := context.Data.(*core.MouseEvent)
	if !ok {
		return false
	}
	g.SystemManager.ForwardRenderer().Camera().Zoom(float32(me.Scroll) * zoomStep)
	return true
}

func (g *DirectVolumeRenderer) onKey(context core.EventContext, sender, listener interface{}) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	s := g.state()
	tf := s.pipeline.TransferFunction()

	switch ke.KeyCode {
	case core.KEY_DELETE:
		intensity, opacity := g.cursor()
		if i := tf.NodeAt(intensity, opacity, nodePickRadius); i >= 0 {
			if err := tf.RemoveNode(i); err != nil {
				core.LogWarn("cannot remove transfer node %d: %s", i, err)
			}
		}
		return true
	case core.KEY_S:
		path := filepath.Join(g.Config.Assets.Root, g.Config.Volume.TransferFunction)
		if err := tf.Save(path); err != nil {
			core.LogError("failed to save transfer function: %s", err)
		} else {
			core.LogInfo("transfer function saved to %s", path)
		}
		return true
	case core.KEY_E:
		g.export()
		return true
	case core.KEY_R:
		g.SystemManager.ForwardRenderer().Camera().Reset()
		return true
	}
	return false
}

func (g *DirectVolumeRenderer) onAssetReloaded(context core.EventContext, sender, listener interface{}) bool {
	core.LogInfo("%v assets reloaded from disk", context.Data)
	return false
}

func (g *DirectVolumeRenderer) export() {
	dir := g.Config.Volume.ExportDir
	if dir == "" {
		dir = "export"
	}
	paths, err := g.state().pipeline.ExportDebugSlices(dir)
	if err != nil {
		core.LogError("failed to export debug slices: %s", err)
		return
	}
	for _, p := range paths {
		core.LogInfo("exported %s", p)
	}
}
