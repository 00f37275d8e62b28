package certificates

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes trust store maintenance tools.
type CommandRunner interface {
	Run(ctx context.Context, executable string, arguments []string) error
	Available(executable string) bool
}

// ExecutableRunner executes commands using the local operating system.
type ExecutableRunner struct{}

// NewExecutableRunner constructs an ExecutableRunner.
func NewExecutableRunner() ExecutableRunner {
	return ExecutableRunner{}
}

// Run executes the executable with the provided arguments, folding stderr into the error.
func (executableRunner ExecutableRunner) Run(ctx context.Context, executable string, arguments []string) error {
	command := exec.CommandContext(ctx, executable, arguments...)
	var stderrBuffer bytes.Buffer
	command.Stderr = &stderrBuffer
	err := command.Run()
	if err != nil {
		return fmt.Errorf("execute %s: %w: %s", executable, err, strings.TrimSpace(stderrBuffer.String()))
	}
	return nil
}

// Available reports whether executable resolves on PATH.
func (executableRunner ExecutableRunner) Available(executable string) bool {
	_, err := exec.LookPath(executable)
	return err == nil
}
