// Package orchestrator runs one tool invocation against one input file,
// enforcing validation before execution and normalizing every outcome into
// a step result.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/retileup/retileup/internal/imageio"
	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/utils"
)

// ProcessingError wraps a failure raised during pixel processing or I/O,
// including panics recovered at the orchestration boundary.
type ProcessingError struct {
	Tool string
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("tool %s: processing failed: %v", e.Tool, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Orchestrator executes tools through the registry
type Orchestrator struct {
	registry *tool.Registry
}

// New creates an orchestrator backed by the given registry
func New(registry *tool.Registry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// Run executes one tool against one input file. Validation always precedes
// execution; processing never begins while any validation error exists, and
// no fault escapes past this boundary: every outcome is a StepResult.
func (o *Orchestrator) Run(ctx context.Context, stepName, toolName, input string, config map[string]interface{}) tool.StepResult {
	start := time.Now()
	result := tool.StepResult{
		Step:   stepName,
		Tool:   toolName,
		Input:  input,
		Status: tool.StatusRunning,
	}

	fail := func(err error) tool.StepResult {
		result.Status = tool.StatusFailed
		result.Success = false
		result.Error = err.Error()
		result.Elapsed = time.Since(start)
		return result
	}

	t, err := o.registry.Get(toolName)
	if err != nil {
		return fail(err)
	}

	extent, err := imageio.OpenExtent(input)
	if err != nil {
		return fail(&ProcessingError{Tool: toolName, Err: err})
	}

	if errs := t.ValidateConfig(config, extent); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, verr := range errs {
			msgs[i] = verr.Error()
		}
		return fail(fmt.Errorf("validation failed: %s", strings.Join(msgs, "; ")))
	}

	if setup, ok := t.(tool.SetupTool); ok {
		if err := setup.Setup(); err != nil {
			return fail(fmt.Errorf("tool setup failed: %w", err))
		}
	}
	if cleanup, ok := t.(tool.CleanupTool); ok {
		defer cleanup.Cleanup()
	}

	toolResult, err := o.process(ctx, t, input, config)
	result.Elapsed = time.Since(start)
	result.Outputs = toolResult.Outputs
	result.Metadata = toolResult.Metadata

	if err != nil {
		utils.LogVerbose("Step %s (%s) failed after %s: %v", stepName, toolName, result.Elapsed, err)
		result.Status = tool.StatusFailed
		result.Success = false
		result.Error = err.Error()
		return result
	}

	utils.LogVerbose("Step %s (%s) completed in %s", stepName, toolName, result.Elapsed)
	result.Status = tool.StatusCompleted
	result.Success = true
	return result
}

// process invokes the tool, converting any panic it lets escape into a
// ProcessingError.
func (o *Orchestrator) process(ctx context.Context, t tool.Tool, input string, config map[string]interface{}) (result tool.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{Tool: t.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err = t.Process(ctx, input, config)
	if err != nil {
		err = &ProcessingError{Tool: t.Name(), Err: err}
	}
	return result, err
}
