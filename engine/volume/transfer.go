package volume

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/snowfall/engine/core"
	emath "github.com/spaghettifunk/snowfall/engine/math"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// Extent of the transfer texture. Row 0 holds colour and opacity, row 1
// metallic and roughness.
const (
	TransferWidth  = 255
	TransferHeight = 2
	maxNodes       = 256
)

/**
 * @brief A control point of the transfer function. The field order is the
 * on-disk record layout.
 */
type TransferNode struct {
	/** @brief Intensity the node sits at, 0-255. */
	Intensity uint32
	Opacity   float32
	R         float32
	G         float32
	B         float32
	Roughness float32
	Metallic  float32
}

// DefaultNodes is a black to white ramp, transparent at zero intensity.
func DefaultNodes() []TransferNode {
	return []TransferNode{
		{Intensity: 0, Opacity: 0, R: 0, G: 0, B: 0, Roughness: 1},
		{Intensity: 85, Opacity: 1.0 / 3, R: 1.0 / 3, G: 1.0 / 3, B: 1.0 / 3, Roughness: 1},
		{Intensity: 170, Opacity: 2.0 / 3, R: 2.0 / 3, G: 2.0 / 3, B: 2.0 / 3, Roughness: 1},
		{Intensity: 255, Opacity: 1, R: 1, G: 1, B: 1, Roughness: 1},
	}
}

func sortNodes(nodes []TransferNode) {
	slices.SortStableFunc(nodes, func(a, b TransferNode) int {
		return cmp.Compare(a.Intensity, b.Intensity)
	})
}

// evaluate interpolates sorted nodes at intensity i. Intensities before the
// first node or after the last take that node's values.
func evaluate(nodes []TransferNode, i uint32) TransferNode {
	first, last := nodes[0], nodes[len(nodes)-1]
	if i <= first.Intensity {
		return first
	}
	if i >= last.Intensity {
		return last
	}
	k := 0
	for k+1 < len(nodes) && nodes[k+1].Intensity <= i {
		k++
	}
	a, b := nodes[k], nodes[k+1]
	t := float32(i-a.Intensity) / float32(b.Intensity-a.Intensity)
	return TransferNode{
		Intensity: i,
		Opacity:   emath.Lerp(a.Opacity, b.Opacity, t),
		R:         emath.Lerp(a.R, b.R, t),
		G:         emath.Lerp(a.G, b.G, t),
		B:         emath.Lerp(a.B, b.B, t),
		Roughness: emath.Lerp(a.Roughness, b.Roughness, t),
		Metallic:  emath.Lerp(a.Metallic, b.Metallic, t),
	}
}

func unorm(f float32) byte {
	return byte(emath.Clamp(f, 0, 1)*255 + 0.5)
}

/**
 * @brief Rasterizes nodes into the RGBA8 contents of the transfer texture.
 * nodes need not be sorted.
 */
func Rasterize(nodes []TransferNode) []byte {
	out := make([]byte, TransferWidth*TransferHeight*4)
	if len(nodes) == 0 {
		return out
	}
	sorted := slices.Clone(nodes)
	sortNodes(sorted)

	row := TransferWidth * 4
	for i := 0; i < TransferWidth; i++ {
		n := evaluate(sorted, uint32(i))
		copy(out[i*4:], []byte{unorm(n.R), unorm(n.G), unorm(n.B), unorm(n.Opacity)})
		copy(out[row+i*4:], []byte{unorm(n.Metallic), unorm(n.Roughness), 0, 255})
	}
	return out
}

/**
 * @brief Reads a transfer function file: an int32 node count followed by one
 * record per node, little-endian.
 */
func ReadNodes(r io.Reader) ([]TransferNode, error) {
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("node count: %w", core.ErrMalformedTFFile)
	}
	if count < 2 || count > maxNodes {
		return nil, fmt.Errorf("%d nodes: %w", count, core.ErrMalformedTFFile)
	}
	nodes := make([]TransferNode, count)
	if err := binary.Read(r, binary.LittleEndian, nodes); err != nil {
		return nil, fmt.Errorf("%d nodes: %s: %w", count, err, core.ErrMalformedTFFile)
	}
	for i, n := range nodes {
		if n.Intensity > 255 {
			return nil, fmt.Errorf("node %d at intensity %d: %w", i, n.Intensity, core.ErrMalformedTFFile)
		}
	}
	return nodes, nil
}

func WriteNodes(w io.Writer, nodes []TransferNode) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(nodes))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, nodes)
}

/**
 * @brief Loads transfer function files through the content manager, so they
 * can be hot reloaded.
 */
type TransferFileLoader struct{}

func (tl *TransferFileLoader) Load(path string) (interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	nodes, err := ReadNodes(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nodes, nil
}

func (tl *TransferFileLoader) Unload(data interface{}) error {
	return nil
}

/**
 * @brief An editable transfer function and the texture it is baked into.
 * Edits mark it dirty; the texture is rebuilt by Update once the user is not
 * dragging a node anymore.
 */
type TransferFunction struct {
	rm       *renderer.ResourceManager
	nodes    []TransferNode
	texture  metadata.TextureHandle
	sampler  metadata.SamplerHandle
	dirty    bool
	dragging int
}

func NewTransferFunction(rm *renderer.ResourceManager) *TransferFunction {
	return &TransferFunction{
		rm:       rm,
		nodes:    DefaultNodes(),
		texture:  metadata.InvalidTexture,
		sampler:  metadata.InvalidSampler,
		dirty:    true,
		dragging: -1,
	}
}

/**
 * @brief Reads nodes from path. On failure the default ramp is used and the
 * error is returned.
 */
func (tf *TransferFunction) Load(path string) error {
	nodes, err := (&TransferFileLoader{}).Load(path)
	if err != nil {
		core.LogWarn("transfer function %s unusable, using the default ramp: %s", path, err)
		tf.SetNodes(DefaultNodes())
		return err
	}
	return tf.SetNodes(nodes.([]TransferNode))
}

func (tf *TransferFunction) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := WriteNodes(w, tf.nodes); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Nodes returns a copy of the current nodes.
func (tf *TransferFunction) Nodes() []TransferNode {
	return slices.Clone(tf.nodes)
}

func (tf *TransferFunction) SetNodes(nodes []TransferNode) error {
	if len(nodes) < 2 {
		return core.ErrTooFewNodes
	}
	tf.nodes = slices.Clone(nodes)
	tf.dragging = -1
	tf.dirty = true
	return nil
}

// AddNode appends n and returns its index, valid until the next Update.
func (tf *TransferFunction) AddNode(n TransferNode) int {
	n.Intensity = min(n.Intensity, 255)
	tf.nodes = append(tf.nodes, n)
	tf.dirty = true
	return len(tf.nodes) - 1
}

func (tf *TransferFunction) RemoveNode(i int) error {
	if i < 0 || i >= len(tf.nodes) {
		return fmt.Errorf("remove node %d of %d: %w", i, len(tf.nodes), core.ErrNodeOutOfRange)
	}
	if len(tf.nodes) <= 2 {
		return core.ErrTooFewNodes
	}
	tf.nodes = slices.Delete(tf.nodes, i, i+1)
	if tf.dragging == i {
		tf.dragging = -1
	} else if tf.dragging > i {
		tf.dragging--
	}
	tf.dirty = true
	return nil
}

func (tf *TransferFunction) SetNode(i int, n TransferNode) error {
	if i < 0 || i >= len(tf.nodes) {
		return fmt.Errorf("set node %d of %d: %w", i, len(tf.nodes), core.ErrNodeOutOfRange)
	}
	n.Intensity = min(n.Intensity, 255)
	tf.nodes[i] = n
	tf.dirty = true
	return nil
}

// NodeAt returns the node closest to (intensity, opacity) within radius
// intensity steps, or -1.
func (tf *TransferFunction) NodeAt(intensity, opacity, radius float32) int {
	best, bestDist := -1, radius*radius
	for i, n := range tf.nodes {
		dx := float32(n.Intensity) - intensity
		dy := (n.Opacity - opacity) * 255
		if d := dx*dx + dy*dy; d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (tf *TransferFunction) BeginDrag(i int) error {
	if i < 0 || i >= len(tf.nodes) {
		return fmt.Errorf("drag node %d of %d: %w", i, len(tf.nodes), core.ErrNodeOutOfRange)
	}
	tf.dragging = i
	return nil
}

// DragTo moves the dragged node. It does nothing when no drag is active.
func (tf *TransferFunction) DragTo(intensity, opacity float32) {
	if tf.dragging < 0 {
		return
	}
	n := &tf.nodes[tf.dragging]
	n.Intensity = uint32(emath.Clamp(intensity, 0, 255) + 0.5)
	n.Opacity = emath.Clamp(opacity, 0, 1)
	tf.dirty = true
}

func (tf *TransferFunction) EndDrag() {
	tf.dragging = -1
}

func (tf *TransferFunction) IsUserInteracting() bool {
	return tf.dragging >= 0
}

func (tf *TransferFunction) IsDirty() bool {
	return tf.dirty
}

/**
 * @brief Rebuilds the texture when the nodes changed and no drag is in
 * progress.
 * @return true when the texture was rebuilt.
 */
func (tf *TransferFunction) Update() (bool, error) {
	if !tf.dirty || tf.IsUserInteracting() {
		return false, nil
	}
	if err := tf.GenerateTransferFunction(); err != nil {
		return false, err
	}
	return true, nil
}

/**
 * @brief Sorts the nodes and bakes them into the transfer texture, creating it
 * on first use.
 */
func (tf *TransferFunction) GenerateTransferFunction() error {
	sortNodes(tf.nodes)
	if !tf.texture.IsValid() {
		tex, err := tf.rm.CreateTexture(metadata.TextureDescriptor{
			Width:          TransferWidth,
			Height:         TransferHeight,
			MipLevels:      1,
			Format:         metadata.FormatRGBA8Unorm,
			Usage:          metadata.UsageDynamic,
			BindFlags:      metadata.BindShaderResource,
			CPUAccessFlags: metadata.CPUAccessWrite,
			Type:           metadata.TextureType2D,
			DebugName:      "transfer-function",
		}, nil)
		if err != nil {
			return err
		}
		tf.texture = tex
	}
	if !tf.sampler.IsValid() {
		s, err := tf.rm.CreateSamplerState(metadata.PointClampSampler())
		if err != nil {
			return err
		}
		tf.sampler = s
	}
	if err := tf.rm.UpdateTexture(tf.texture, 0, 0, Rasterize(tf.nodes), 0); err != nil {
		return err
	}
	tf.dirty = false
	return nil
}

func (tf *TransferFunction) Texture() metadata.TextureHandle {
	return tf.texture
}

func (tf *TransferFunction) Sampler() metadata.SamplerHandle {
	return tf.sampler
}

func (tf *TransferFunction) Release() {
	if tf.texture.IsValid() {
		tf.rm.DestroyTexture(tf.texture)
		tf.texture = metadata.InvalidTexture
	}
	tf.dirty = true
}
