// Package report aggregates per-step results into a run report and detects
// output path collisions across the whole run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/utils"
)

// OutputCollisionError reports two steps writing the same output path.
type OutputCollisionError struct {
	Path      string
	File      string
	Step      string
	FirstFile string
	FirstStep string
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("output collision: %s written by step %q for %s was already produced by step %q for %s",
		e.Path, e.Step, e.File, e.FirstStep, e.FirstFile)
}

// FileReport records the outcome of one input file's pipeline.
type FileReport struct {
	Input   string            `yaml:"input"`
	Status  tool.StepStatus   `yaml:"status"`
	Steps   []tool.StepResult `yaml:"steps"`
	Elapsed time.Duration     `yaml:"elapsed"`
}

// Summary holds the run-level counters.
type Summary struct {
	TotalFiles     int `yaml:"totalFiles"`
	CompletedFiles int `yaml:"completedFiles"`
	FailedFiles    int `yaml:"failedFiles"`
	CancelledFiles int `yaml:"cancelledFiles"`
	TotalSteps     int `yaml:"totalSteps"`
	FailedSteps    int `yaml:"failedSteps"`
}

// RunReport is the single caller-visible record of a run. It enumerates
// every file's final status and every error with file, step, and tool
// context.
type RunReport struct {
	ID        string       `yaml:"id"`
	Workflow  string       `yaml:"workflow"`
	StartTime time.Time    `yaml:"startTime"`
	EndTime   time.Time    `yaml:"endTime"`
	Files     []FileReport `yaml:"files"`
	Outputs   []string     `yaml:"outputs"`
	Errors    []string     `yaml:"errors,omitempty"`
	Summary   Summary      `yaml:"summary"`
}

// outputRef remembers which step first claimed an output path.
type outputRef struct {
	file string
	step string
}

// Aggregator merges per-file results under a single lock; it is the only
// object mutated by multiple workers.
type Aggregator struct {
	mu     sync.Mutex
	report *RunReport
	seen   map[string]outputRef
	done   bool
}

// NewAggregator starts a report for the named workflow.
func NewAggregator(workflow string) *Aggregator {
	return &Aggregator{
		report: &RunReport{
			ID:        uuid.New().String(),
			Workflow:  workflow,
			StartTime: time.Now(),
		},
		seen: make(map[string]outputRef),
	}
}

// Add records one file's step results. Output paths are checked against
// every path recorded so far in the run; a duplicate marks the conflicting
// step failed post-hoc and surfaces an OutputCollisionError in the report.
// Files already written to disk are not rolled back.
func (a *Aggregator) Add(file string, status tool.StepStatus, steps []tool.StepResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var elapsed time.Duration
	for i := range steps {
		step := &steps[i]
		elapsed += step.Elapsed
		// Outputs of failed steps are recorded too: a step that fails
		// mid-way has already written its partial outputs to disk, so they
		// must appear in the report and claim their paths.
		for _, out := range step.Outputs {
			if first, dup := a.seen[out]; dup {
				if !step.Success {
					continue
				}
				collision := &OutputCollisionError{
					Path:      out,
					File:      file,
					Step:      step.Step,
					FirstFile: first.file,
					FirstStep: first.step,
				}
				step.Success = false
				step.Status = tool.StatusFailed
				step.Error = collision.Error()
				status = tool.StatusFailed
				continue
			}
			a.seen[out] = outputRef{file: file, step: step.Step}
			a.report.Outputs = append(a.report.Outputs, out)
		}
	}

	for _, step := range steps {
		if step.Error != "" {
			a.report.Errors = append(a.report.Errors,
				fmt.Sprintf("%s: step %q (tool %s): %s", file, step.Step, step.Tool, step.Error))
		}
	}

	a.report.Files = append(a.report.Files, FileReport{
		Input:   file,
		Status:  status,
		Steps:   steps,
		Elapsed: elapsed,
	})
}

// Finalize closes the report and computes the summary. It is safe to call
// once all workers have stopped adding results.
func (a *Aggregator) Finalize() *RunReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.done {
		return a.report
	}
	a.done = true
	a.report.EndTime = time.Now()

	s := &a.report.Summary
	s.TotalFiles = len(a.report.Files)
	for _, f := range a.report.Files {
		switch f.Status {
		case tool.StatusCompleted:
			s.CompletedFiles++
		case tool.StatusCancelled:
			s.CancelledFiles++
		default:
			s.FailedFiles++
		}
		for _, step := range f.Steps {
			s.TotalSteps++
			if step.Status == tool.StatusFailed {
				s.FailedSteps++
			}
		}
	}

	return a.report
}

// Save writes the report as YAML next to the run outputs.
func (r *RunReport) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

// Render prints the report through the leveled logger.
func (r *RunReport) Render() {
	utils.LogInfo("Run %s (%s): %d files, %d completed, %d failed, %d cancelled",
		r.ID, r.Workflow,
		r.Summary.TotalFiles, r.Summary.CompletedFiles, r.Summary.FailedFiles, r.Summary.CancelledFiles)

	for _, f := range r.Files {
		switch f.Status {
		case tool.StatusCompleted:
			utils.LogSuccess("  %s: %s (%s)", f.Input, f.Status, f.Elapsed.Round(time.Millisecond))
		case tool.StatusCancelled:
			utils.LogWarning("  %s: %s", f.Input, f.Status)
		default:
			utils.LogWarning("  %s: %s", f.Input, f.Status)
			for _, step := range f.Steps {
				if step.Error != "" {
					utils.LogError("    step %q (tool %s): %s", step.Step, step.Tool, step.Error)
				}
			}
		}
	}

	if len(r.Outputs) > 0 {
		utils.LogInfo("Produced %d output files", len(r.Outputs))
	}
}
