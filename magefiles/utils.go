//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

// goCommand is one invocation of the go tool.
type goCommand struct {
	args   []string
	stream bool
}

func goTool(args ...string) *goCommand {
	return &goCommand{args: args}
}

// Streamed commands print as they run, quiet ones only on failure.
func (c *goCommand) streamed() *goCommand {
	c.stream = true
	return c
}

func (c *goCommand) run() (string, error) {
	fmt.Printf("Executing: go %s\n", strings.Join(c.args, " "))
	cmd := exec.Command("go", c.args...)

	stream := c.stream || mg.Verbose()
	var out bytes.Buffer
	if stream {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	} else {
		cmd.Stdout = &out
		cmd.Stderr = &out
	}
	if err := cmd.Run(); err != nil {
		if !stream {
			fmt.Println("... failed command output:")
			fmt.Println(out.String())
		}
		return "", fmt.Errorf("go %s: %w", c.args[0], err)
	}
	return out.String(), nil
}

// goTest runs the tests of pkgs. The soft device runs compute on worker
// goroutines, so race enables the detector for the pipeline packages.
func goTest(race bool, pkgs ...string) error {
	args := []string{"test"}
	if race {
		args = append(args, "-race")
	}
	if mg.Verbose() {
		args = append(args, "-v")
	}
	_, err := goTool(append(args, pkgs...)...).streamed().run()
	return err
}

func goModDownload() error {
	if _, err := goTool("mod", "download").run(); err != nil {
		return fmt.Errorf("failed to download modules: %w", err)
	}
	return nil
}
