package tools

import (
	"bytes"
	"errors"
	"os/exec"
)

// RunResult captures one command invocation. ExitCode is 0 on success,
// the process exit code on failure, and 127 when the binary could not be
// started.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int32
}

// CommandRunner abstracts local command execution so handlers can be
// tested without spawning processes.
type CommandRunner interface {
	Run(name string, args ...string) (RunResult, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(name string, args ...string) (RunResult, error) {
	cmd := exec.Command(name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = int32(exitErr.ExitCode())
		return result, err
	}

	result.ExitCode = 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		result.ExitCode = 127
	}
	return result, err
}
