// Package code provides the remote code execution command.
package code

import (
	"fmt"
	"strings"

	"github.com/danmuck/bridgectl/internal/commands"
	"github.com/danmuck/bridgectl/internal/tools"
)

const defaultInterpreter = "python3"

// Provider executes caller-supplied code through a command runner.
type Provider struct {
	runner      tools.CommandRunner
	interpreter string
}

// NewProvider builds a code provider. A nil runner defaults to local
// execution; an empty interpreter defaults to python3.
func NewProvider(runner tools.CommandRunner, interpreter string) *Provider {
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	if interpreter == "" {
		interpreter = defaultInterpreter
	}
	return &Provider{runner: runner, interpreter: interpreter}
}

func (p *Provider) Metadata() commands.ProviderMetadata {
	return commands.ProviderMetadata{
		ID:          "code",
		Name:        "code execution",
		Description: "runs caller-supplied scripts on the host",
	}
}

func (p *Provider) Bindings() []commands.Binding {
	return []commands.Binding{
		{
			Name:        "execute_code",
			Description: "execute a script and capture its stdout",
			Handler:     p.executeCode,
		},
	}
}

func (p *Provider) executeCode(payload map[string]any) (map[string]any, error) {
	script, err := commands.StringField("execute_code", payload, "code")
	if err != nil {
		return nil, err
	}

	result, err := p.runner.Run(p.interpreter, "-c", script)
	if err != nil {
		detail := strings.TrimSpace(string(result.Stderr))
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("code execution failed (exit %d): %s", result.ExitCode, detail)
	}

	return map[string]any{"output": string(result.Stdout)}, nil
}
