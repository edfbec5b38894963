package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/assets"
	"github.com/spaghettifunk/snowfall/engine/assets/loaders"
	"github.com/spaghettifunk/snowfall/engine/renderer"
	"github.com/spaghettifunk/snowfall/engine/renderer/soft"
)

var shaderConfigs = map[string]string{
	"shaders/volume_normals.shadercfg": `
name = "volume_normals"
stage = "compute"
entry = "volume_normals"
num_threads = [8, 8, 8]
`,
	"shaders/occupancy.shadercfg": `
name = "occupancy"
stage = "compute"
entry = "occupancy_max"
num_threads = [8, 8, 8]
`,
	"shaders/raymarch_vs.shadercfg": `
name = "raymarch_vs"
stage = "vertex"
entry = "raymarch_cube"
`,
	"shaders/raymarch_ps.shadercfg": `
name = "raymarch_ps"
stage = "pixel"
entry = "raymarch"
`,
}

type testEnv struct {
	dir string
	dev *soft.Device
	rm  *renderer.ResourceManager
	cm  *assets.ContentManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	for name, content := range shaderConfigs {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	dev := soft.NewDevice(soft.Config{})
	RegisterKernels(dev)
	rm, err := renderer.NewResourceManager(renderer.ResourceManagerConfig{
		MaxBufferCount:      32,
		MaxTextureCount:     32,
		MaxShaderCount:      16,
		MaxPipelineCount:    16,
		MaxSamplerCount:     16,
		MaxBlendCount:       8,
		MaxRasterCount:      8,
		MaxDepthCount:       8,
		MaxInputLayoutCount: 8,
	}, dev)
	require.NoError(t, err)

	cm := assets.NewContentManager(assets.ContentManagerConfig{Root: dir})
	t.Cleanup(func() {
		cm.Shutdown()
		rm.Shutdown()
		dev.Shutdown()
	})
	return &testEnv{dir: dir, dev: dev, rm: rm, cm: cm}
}

func (e *testEnv) pipelineConfig() PipelineConfig {
	return PipelineConfig{
		NormalsProgram:   "shaders/volume_normals.shadercfg",
		OccupancyProgram: "shaders/occupancy.shadercfg",
		RayMarchVertex:   "shaders/raymarch_vs.shadercfg",
		RayMarchPixel:    "shaders/raymarch_ps.shadercfg",
		VoxelsPerCell:    4,
		NoiseSeed:        1,
	}
}

// cube returns an n^3 Uint8 volume with every voxel set to fill.
func cube(n uint32, fill byte) *RawVolume {
	data := make([]byte, n*n*n)
	for i := range data {
		data[i] = fill
	}
	return &RawVolume{
		VolumeMeta: loaders.VolumeMeta{Width: n, Height: n, Depth: n, NumDims: 3, Format: loaders.VoxelUint8},
		Name:       "cube",
		Data:       data,
	}
}

// writeVolume stores v under the env root as name.raw with its sidecar.
func (e *testEnv) writeVolume(t *testing.T, name string, v *RawVolume) string {
	t.Helper()
	rel := name + ".raw"
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, rel), v.Data, 0o644))
	require.NoError(t, loaders.WriteMeta(filepath.Join(e.dir, name+".meta"), v.VolumeMeta))
	return rel
}
