//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Downloads the modules and builds the DirectVolumeRenderer binary into bin/.
func (Build) Binary() error {
	if err := goModDownload(); err != nil {
		return err
	}
	_, err := goTool("build", "-o", "bin/snowfall", ".").streamed().run()
	return err
}

// Runs go vet over every package.
func (Build) Vet() error {
	_, err := goTool("vet", "./...").streamed().run()
	return err
}
