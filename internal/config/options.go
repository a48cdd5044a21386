// Package config holds the run options assembled from CLI flags, workflow
// files, and environment defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/retileup/retileup/internal/utils"
)

// RunOptions carries the caller-supplied settings for one run. The core
// engines receive these explicitly; there is no global CLI state.
type RunOptions struct {
	WorkflowPath    string
	Inputs          []string
	OutputPath      string
	MaxParallel     int
	ContinueOnError bool
	ReportPath      string
}

// NewRunOptions validates the raw flag values and applies environment
// defaults for unset fields.
func NewRunOptions(workflowPath string, inputs []string, outputPath string, maxParallel int, continueOnError bool, reportPath string) (*RunOptions, error) {
	opts := &RunOptions{
		WorkflowPath:    workflowPath,
		Inputs:          inputs,
		OutputPath:      outputPath,
		MaxParallel:     maxParallel,
		ContinueOnError: continueOnError,
		ReportPath:      reportPath,
	}
	opts.applyEnvDefaults()

	if err := opts.validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// applyEnvDefaults fills unset fields from RETILEUP_* environment variables.
func (o *RunOptions) applyEnvDefaults() {
	if o.OutputPath == "" {
		o.OutputPath = os.Getenv("RETILEUP_OUTPUT")
	}
	if o.MaxParallel == 0 {
		if v := os.Getenv("RETILEUP_MAX_PARALLEL"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				o.MaxParallel = n
			} else {
				utils.LogWarning("Ignoring invalid RETILEUP_MAX_PARALLEL=%q", v)
			}
		}
	}
}

func (o *RunOptions) validate() error {
	if o.WorkflowPath == "" {
		return fmt.Errorf("workflow path is required")
	}
	if _, err := os.Stat(o.WorkflowPath); os.IsNotExist(err) {
		return fmt.Errorf("workflow file does not exist: %s", o.WorkflowPath)
	}
	if len(o.Inputs) == 0 {
		return fmt.Errorf("at least one input file or directory is required")
	}
	if o.MaxParallel < 0 {
		return fmt.Errorf("max-parallel must be non-negative, got %d", o.MaxParallel)
	}
	if o.OutputPath != "" {
		if err := utils.ValidateOutputDir(o.OutputPath); err != nil {
			return err
		}
	}
	return nil
}
