package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/retileup/retileup/internal/config"
	"github.com/retileup/retileup/internal/tools"
	"github.com/retileup/retileup/internal/utils"
	"github.com/retileup/retileup/internal/workflow"
)

var (
	workflowFilePath string
	inputPaths       []string
	outputFolderPath string
	maxParallelFlag  int
	continueOnError  bool
	reportFilePath   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an image processing workflow",
	Long:  `Execute an image processing workflow defined in a YAML file over one or more input files or directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := config.NewRunOptions(workflowFilePath, inputPaths, outputFolderPath,
			maxParallelFlag, continueOnError, reportFilePath)
		if err != nil {
			return err
		}

		def, err := workflow.LoadFromFile(opts.WorkflowPath)
		if err != nil {
			return fmt.Errorf("failed to load workflow: %w", err)
		}

		// CLI flags override the workflow file settings.
		if opts.OutputPath != "" {
			def.Output = opts.OutputPath
		}
		if opts.MaxParallel > 0 {
			def.MaxParallel = opts.MaxParallel
		}
		if opts.ContinueOnError {
			def.ContinueOnError = true
		}

		files, err := utils.CollectImageFiles(opts.Inputs)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no image files found in inputs: %s", strings.Join(opts.Inputs, ", "))
		}

		registry, err := tools.NewRegistry()
		if err != nil {
			return err
		}

		// Interrupts stop dispatch of new files; in-flight files finish
		// their current step.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine := workflow.NewEngine(registry)
		runReport, err := engine.Run(ctx, def, files)
		if err != nil {
			return fmt.Errorf("workflow execution failed: %w", err)
		}

		runReport.Render()

		reportPath := opts.ReportPath
		if reportPath == "" && def.Output != "" {
			sanitized := strings.ReplaceAll(def.Name, " ", "_")
			reportPath = filepath.Join(def.Output, sanitized+".report.yaml")
		}
		if reportPath != "" {
			if err := runReport.Save(reportPath); err != nil {
				return fmt.Errorf("failed to save run report: %w", err)
			}
			utils.LogVerbose("Run report saved to %s", reportPath)
		}

		if runReport.Summary.FailedFiles > 0 {
			return fmt.Errorf("%d of %d files failed", runReport.Summary.FailedFiles, runReport.Summary.TotalFiles)
		}

		utils.LogSuccess("Workflow completed successfully")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&workflowFilePath, "workflow", "w", "", "Path to workflow YAML file (required)")
	runCmd.Flags().StringSliceVarP(&inputPaths, "input", "i", nil, "Input image file or directory (repeatable, required)")
	runCmd.Flags().StringVarP(&outputFolderPath, "output", "o", "", "Output directory (overrides the workflow file)")
	runCmd.Flags().IntVarP(&maxParallelFlag, "max-parallel", "p", 0, "Maximum files processed concurrently (default: CPU count)")
	runCmd.Flags().BoolVarP(&continueOnError, "continue-on-error", "c", false, "Keep executing later steps for a file after a failure")
	runCmd.Flags().StringVarP(&reportFilePath, "report", "r", "", "Path for the YAML run report")
	_ = runCmd.MarkFlagRequired("workflow")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
