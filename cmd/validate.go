package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retileup/retileup/internal/tools"
	"github.com/retileup/retileup/internal/utils"
	"github.com/retileup/retileup/internal/workflow"
)

var validateWorkflowPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a workflow file without executing it",
	Long:  `Check that a workflow YAML file is well-formed: it has steps, unique step names, and every step names a registered tool.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := workflow.LoadFromFile(validateWorkflowPath)
		if err != nil {
			return fmt.Errorf("failed to load workflow: %w", err)
		}

		registry, err := tools.NewRegistry()
		if err != nil {
			return err
		}

		if err := def.Validate(registry); err != nil {
			return err
		}

		utils.LogSuccess("Workflow is valid: %s", workflow.Describe(def))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateWorkflowPath, "workflow", "w", "", "Path to workflow YAML file (required)")
	_ = validateCmd.MarkFlagRequired("workflow")
	rootCmd.AddCommand(validateCmd)
}
