package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

/**
 * @brief Loads a .shadercfg TOML file into a *metadata.ShaderDescriptor. A
 * bytecode path inside the config is resolved relative to the config file.
 */
type ShaderConfigLoader struct{}

func (sl *ShaderConfigLoader) Load(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader config loader: %w", err)
	}

	var cfg metadata.ShaderConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		core.LogError("failed to parse shader config %s: %s", path, err)
		return nil, fmt.Errorf("%s: %w: %w", path, core.ErrInvalidDescriptor, err)
	}
	if cfg.Name == "" {
		cfg.Name = filepath.Base(path)
	}

	var bytecode []byte
	if cfg.Bytecode != "" {
		bytecode, err = os.ReadFile(filepath.Join(filepath.Dir(path), cfg.Bytecode))
		if err != nil {
			return nil, fmt.Errorf("shader %s bytecode: %w", cfg.Name, err)
		}
	}

	desc, err := cfg.Descriptor(bytecode)
	if err != nil {
		return nil, err
	}
	return &desc, nil
}

func (sl *ShaderConfigLoader) Unload(interface{}) error {
	return nil
}
