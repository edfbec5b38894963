//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every test in the module.
func (Test) All() error {
	return goTest(false, "./...")
}

// Runs the volume pipeline tests with the race detector.
func (Test) Volume() error {
	return goTest(true, "./engine/volume/...", "./engine/renderer/...")
}
