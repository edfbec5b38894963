package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/snowfall/engine/core"
)

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32 `toml:"start_height"`
	// Run without a window for the given number of frames.
	Headless bool `toml:"headless"`
	// Frames to render in headless mode. Zero runs until interrupted.
	MaxFrames uint64 `toml:"max_frames"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type DeviceConfig struct {
	// Only "soft" is available as a full device.
	Backend string `toml:"backend"`
	// Commands recorded before the device flushes on its own.
	CommandQueueSize int `toml:"command_queue_size"`
	// Workers executing compute groups. Zero uses one per CPU.
	Workers int `toml:"workers"`
	// Pending jobs the worker pool buffers.
	JobQueueSize int `toml:"job_queue_size"`
	// Record every explicit transition as a Vulkan image barrier.
	BarrierTrace bool `toml:"barrier_trace"`
}

type PoolConfig struct {
	Buffers      int `toml:"buffers"`
	Textures     int `toml:"textures"`
	Shaders      int `toml:"shaders"`
	Pipelines    int `toml:"pipelines"`
	Samplers     int `toml:"samplers"`
	Blends       int `toml:"blends"`
	Rasters      int `toml:"rasters"`
	Depths       int `toml:"depths"`
	InputLayouts int `toml:"input_layouts"`
}

type AssetsConfig struct {
	Root  string `toml:"root"`
	Watch bool   `toml:"watch"`
}

type VolumeConfig struct {
	// Raw volume loaded at startup, relative to the asset root.
	Path string `toml:"path"`
	// Transfer function file, relative to the asset root.
	TransferFunction string `toml:"transfer_function"`
	NormalsProgram   string `toml:"normals_program"`
	OccupancyProgram string `toml:"occupancy_program"`
	RayMarchVertex   string `toml:"raymarch_vertex"`
	RayMarchPixel    string `toml:"raymarch_pixel"`
	VoxelsPerCell    uint32 `toml:"voxels_per_cell"`
	// Scan 16-bit ranges on the job system.
	AsyncRangeScan bool `toml:"async_range_scan"`
	// Directory debug slices are written to. Empty disables export.
	ExportDir string `toml:"export_dir"`
	// Seed of the ray jitter noise texture.
	NoiseSeed uint64 `toml:"noise_seed"`
	// Optional image the jitter noise is read from, relative to the asset root.
	NoiseImage string `toml:"noise_image"`
}

/**
 * @brief The engine configuration, read from snowfall.toml.
 */
type Config struct {
	Application ApplicationConfig `toml:"application"`
	Log         LogConfig         `toml:"log"`
	Device      DeviceConfig      `toml:"device"`
	Pools       PoolConfig        `toml:"pools"`
	Assets      AssetsConfig      `toml:"assets"`
	Volume      VolumeConfig      `toml:"volume"`
}

func Default() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:        "SnowFall DirectVolumeRenderer",
			StartPosX:   100,
			StartPosY:   100,
			StartWidth:  1280,
			StartHeight: 720,
		},
		Log: LogConfig{Level: "info"},
		Device: DeviceConfig{
			Backend:          "soft",
			CommandQueueSize: 256,
			JobQueueSize:     1024,
		},
		Pools: PoolConfig{
			Buffers:      256,
			Textures:     256,
			Shaders:      64,
			Pipelines:    64,
			Samplers:     32,
			Blends:       32,
			Rasters:      32,
			Depths:       32,
			InputLayouts: 32,
		},
		Assets: AssetsConfig{Root: "assets", Watch: true},
		Volume: VolumeConfig{
			Path:             "volumes/phantom.raw",
			TransferFunction: "volumes/phantom.tf",
			NormalsProgram:   "shaders/volume_normals.shadercfg",
			OccupancyProgram: "shaders/occupancy.shadercfg",
			RayMarchVertex:   "shaders/raymarch_vs.shadercfg",
			RayMarchPixel:    "shaders/raymarch_ps.shadercfg",
			VoxelsPerCell:    4,
			NoiseSeed:        0x5eed,
		},
	}
}

/**
 * @brief Reads the TOML file at path on top of the defaults. Keys missing from
 * the file keep their default value.
 */
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		core.LogError("failed to parse config %s: %s", path, err)
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	pools := map[string]int{
		"buffers":       c.Pools.Buffers,
		"textures":      c.Pools.Textures,
		"shaders":       c.Pools.Shaders,
		"pipelines":     c.Pools.Pipelines,
		"samplers":      c.Pools.Samplers,
		"blends":        c.Pools.Blends,
		"rasters":       c.Pools.Rasters,
		"depths":        c.Pools.Depths,
		"input_layouts": c.Pools.InputLayouts,
	}
	for name, n := range pools {
		if n < 1 || n > 65535 {
			return fmt.Errorf("pools.%s = %d, want 1..65535: %w", name, n, core.ErrInvalidCapacity)
		}
	}
	if c.Volume.VoxelsPerCell == 0 {
		return fmt.Errorf("volume.voxels_per_cell: %w", core.ErrInvalidCellCount)
	}
	if c.Device.Workers < 0 || c.Device.JobQueueSize < 1 || c.Device.CommandQueueSize < 1 {
		return fmt.Errorf("device: workers %d, job queue %d, command queue %d: %w",
			c.Device.Workers, c.Device.JobQueueSize, c.Device.CommandQueueSize, core.ErrInvalidCapacity)
	}
	if c.Device.Backend != "soft" {
		return fmt.Errorf("device.backend %q: %w", c.Device.Backend, core.ErrNoDevice)
	}
	return nil
}
