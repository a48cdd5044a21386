// Package workflow loads workflow definitions and executes them across many
// input files with bounded parallelism.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/retileup/retileup/internal/tool"
)

// Step is one workflow entry naming a tool and its configuration.
type Step struct {
	Name   string                 `yaml:"name"`
	Tool   string                 `yaml:"tool"`
	Config map[string]interface{} `yaml:"config"`
}

// Definition is a complete workflow, immutable after load.
type Definition struct {
	Name            string `yaml:"name"`
	Description     string `yaml:"description,omitempty"`
	Output          string `yaml:"output,omitempty"`
	Steps           []Step `yaml:"steps"`
	MaxParallel     int    `yaml:"maxParallel,omitempty"`
	ContinueOnError bool   `yaml:"continueOnError,omitempty"`
}

// WorkflowError reports a malformed workflow; it is fatal for the run scope
// and raised before any file is processed.
type WorkflowError struct {
	Workflow string
	Reason   string
}

func (e *WorkflowError) Error() string {
	if e.Workflow == "" {
		return fmt.Sprintf("invalid workflow: %s", e.Reason)
	}
	return fmt.Sprintf("invalid workflow %q: %s", e.Workflow, e.Reason)
}

// LoadFromFile loads a workflow definition from a YAML file.
func LoadFromFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow file: %w", err)
	}

	return &def, nil
}

// Validate checks the definition against the registry. Every step must name
// a registered tool, step names must be unique, and at least one step is
// required.
func (d *Definition) Validate(registry *tool.Registry) error {
	if len(d.Steps) == 0 {
		return &WorkflowError{Workflow: d.Name, Reason: "workflow has no steps"}
	}
	if d.MaxParallel < 0 {
		return &WorkflowError{Workflow: d.Name, Reason: fmt.Sprintf("maxParallel must be non-negative, got %d", d.MaxParallel)}
	}

	names := make(map[string]bool, len(d.Steps))
	for i, step := range d.Steps {
		if step.Name == "" {
			return &WorkflowError{Workflow: d.Name, Reason: fmt.Sprintf("step %d has no name", i)}
		}
		if names[step.Name] {
			return &WorkflowError{Workflow: d.Name, Reason: fmt.Sprintf("duplicate step name %q", step.Name)}
		}
		names[step.Name] = true

		if step.Tool == "" {
			return &WorkflowError{Workflow: d.Name, Reason: fmt.Sprintf("step %q names no tool", step.Name)}
		}
		if !registry.Has(step.Tool) {
			return &WorkflowError{Workflow: d.Name, Reason: fmt.Sprintf("step %q names unknown tool %q", step.Name, step.Tool)}
		}
	}

	return nil
}
