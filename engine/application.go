package engine

import (
	"github.com/spaghettifunk/snowfall/engine/config"
	"github.com/spaghettifunk/snowfall/engine/core"
)

/**
 * @brief Reads the application configuration and applies its log level. An
 * empty path uses the built-in defaults.
 */
func LoadApplicationConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	level, err := core.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(level)
	core.LogDebug("configuration loaded for %s", cfg.Application.Name)
	return cfg, nil
}
