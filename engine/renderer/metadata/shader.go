package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/snowfall/engine/core"
)

/**
 * @brief Programmable pipeline stages.
 */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStagePixel
	ShaderStageCompute

	ShaderStageCount
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStagePixel:
		return "pixel"
	case ShaderStageCompute:
		return "compute"
	}
	return fmt.Sprintf("ShaderStage(%d)", int(s))
}

func ParseShaderStage(s string) (ShaderStage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertex", "vs":
		return ShaderStageVertex, nil
	case "pixel", "fragment", "ps", "fs":
		return ShaderStagePixel, nil
	case "compute", "cs":
		return ShaderStageCompute, nil
	}
	return 0, fmt.Errorf("unknown shader stage %q: %w", s, core.ErrInvalidDescriptor)
}

/**
 * @brief The on-disk shader configuration (.shadercfg, TOML).
 */
type ShaderConfig struct {
	/** @brief The Name of the program. */
	Name string `toml:"name"`
	/** @brief The pipeline stage, e.g. "compute". */
	Stage string `toml:"stage"`
	/** @brief The entry point (kernel name for the software device). */
	Entry string `toml:"entry"`
	/** @brief Optional compiled bytecode, relative to the config file. */
	Bytecode string `toml:"bytecode"`
	/** @brief Thread group size for compute programs. */
	NumThreads [3]uint32 `toml:"num_threads"`
}

/**
 * @brief Describes a shader program for device creation.
 */
type ShaderDescriptor struct {
	Name       string
	Stage      ShaderStage
	EntryPoint string
	Bytecode   []byte
	NumThreads [3]uint32
}

func (d *ShaderDescriptor) Validate() error {
	if d.EntryPoint == "" {
		return fmt.Errorf("shader %q has no entry point: %w", d.Name, core.ErrInvalidDescriptor)
	}
	if d.Stage < 0 || d.Stage >= ShaderStageCount {
		return fmt.Errorf("shader %q has stage %v: %w", d.Name, d.Stage, core.ErrInvalidDescriptor)
	}
	if d.Stage == ShaderStageCompute {
		for i, n := range d.NumThreads {
			if n == 0 {
				d.NumThreads[i] = 1
			}
		}
	}
	return nil
}

// Descriptor converts a loaded configuration into a device shader descriptor.
func (c *ShaderConfig) Descriptor(bytecode []byte) (ShaderDescriptor, error) {
	stage, err := ParseShaderStage(c.Stage)
	if err != nil {
		return ShaderDescriptor{}, err
	}
	desc := ShaderDescriptor{
		Name:       c.Name,
		Stage:      stage,
		EntryPoint: c.Entry,
		Bytecode:   bytecode,
		NumThreads: c.NumThreads,
	}
	return desc, desc.Validate()
}
