/*
DirectVolumeRenderer: loads a raw volume and renders it with the SnowFall
engine. Run with -config to point at a snowfall.toml.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/snowfall/engine"
	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to snowfall.toml (defaults are used when empty)")
	headless := flag.Bool("headless", false, "render without a window")
	frames := flag.Uint64("frames", 0, "stop after this many frames (0 runs until closed)")
	flag.Parse()

	cfg, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}
	if *headless {
		cfg.Application.Headless = true
	}
	if *frames > 0 {
		cfg.Application.MaxFrames = *frames
	}

	dvr := testbed.NewDirectVolumeRenderer(cfg)

	e, err := engine.New(dvr.Game)
	if err != nil {
		core.LogFatal("failed to create the engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize the engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		e.Stop()
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("engine stopped: %s", runErr)
	}
}
