package workflow

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/retileup/retileup/internal/orchestrator"
	"github.com/retileup/retileup/internal/report"
	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/utils"
)

// Engine executes workflow definitions across input files. Distinct files
// are processed by a bounded worker pool; within one file, steps run
// strictly in declaration order.
type Engine struct {
	registry *tool.Registry
	orch     *orchestrator.Orchestrator
}

// NewEngine creates a workflow engine backed by the given registry.
func NewEngine(registry *tool.Registry) *Engine {
	return &Engine{
		registry: registry,
		orch:     orchestrator.New(registry),
	}
}

// Run executes the workflow against the input files and returns the run
// report. A malformed workflow is rejected before any file is processed.
// Cancelling the context stops dispatch of new files; in-flight files finish
// their current step and their remaining steps are skipped.
func (e *Engine) Run(ctx context.Context, def *Definition, inputs []string) (*report.RunReport, error) {
	if err := def.Validate(e.registry); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &WorkflowError{Workflow: def.Name, Reason: "no input files"}
	}

	workers := def.MaxParallel
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	utils.LogInfo("Running workflow %q: %d files, %d steps, %d workers",
		def.Name, len(inputs), len(def.Steps), workers)

	agg := report.NewAggregator(def.Name)
	jobs := make(chan string)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for input := range jobs {
				status, steps := e.runFile(ctx, def, input)
				agg.Add(input, status, steps)
			}
		}()
	}

	// Dispatch until the context is cancelled; files never dispatched are
	// recorded as cancelled so the report still enumerates every input.
	var undispatched []string
dispatch:
	for i, input := range inputs {
		select {
		case jobs <- input:
		case <-ctx.Done():
			undispatched = inputs[i:]
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for _, input := range undispatched {
		agg.Add(input, tool.StatusCancelled, nil)
	}

	return agg.Finalize(), nil
}

// runFile drives one input through the per-file state machine:
// Pending -> Running(step) -> Completed | Failed | Cancelled.
func (e *Engine) runFile(ctx context.Context, def *Definition, input string) (tool.StepStatus, []tool.StepResult) {
	current := input
	results := make([]tool.StepResult, 0, len(def.Steps))

	failed := false
	cancelled := false

	for _, step := range def.Steps {
		if cancelled || (failed && !def.ContinueOnError) {
			results = append(results, tool.StepResult{
				Step:   step.Name,
				Tool:   step.Tool,
				Input:  current,
				Status: tool.StatusSkipped,
			})
			continue
		}
		if ctx.Err() != nil {
			cancelled = true
			results = append(results, tool.StepResult{
				Step:   step.Name,
				Tool:   step.Tool,
				Input:  current,
				Status: tool.StatusSkipped,
			})
			continue
		}

		res := e.orch.Run(ctx, step.Name, step.Tool, current, e.stepConfig(def, step))
		results = append(results, res)

		if res.Success {
			// The first output becomes the next step's input.
			if len(res.Outputs) > 0 {
				current = res.Outputs[0]
			}
		} else {
			failed = true
		}
	}

	switch {
	case cancelled:
		return tool.StatusCancelled, results
	case failed:
		return tool.StatusFailed, results
	default:
		return tool.StatusCompleted, results
	}
}

// stepConfig copies the step configuration and injects the workflow-level
// output directory when the step does not set its own. Definitions stay
// immutable; each invocation gets its own map.
func (e *Engine) stepConfig(def *Definition, step Step) map[string]interface{} {
	config := make(map[string]interface{}, len(step.Config)+1)
	for k, v := range step.Config {
		config[k] = v
	}
	if _, ok := config["output"]; !ok && def.Output != "" {
		config["output"] = def.Output
	}
	return config
}

// Describe returns a short human-readable summary of a definition, used by
// the validate command.
func Describe(def *Definition) string {
	return fmt.Sprintf("workflow %q: %d steps, maxParallel=%d, continueOnError=%v",
		def.Name, len(def.Steps), def.MaxParallel, def.ContinueOnError)
}
