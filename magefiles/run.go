//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the DirectVolumeRenderer with snowfall.toml.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	_, err := goTool("run", ".", "-config", "snowfall.toml").streamed().run()
	return err
}

// Renders a few frames without a window and exports the debug slices.
func (Run) Headless() error {
	_, err := goTool("run", ".", "-config", "snowfall.toml", "-headless", "-frames", "10").streamed().run()
	return err
}
