package cmd

import (
	"github.com/spf13/cobra"

	"github.com/retileup/retileup/internal/utils"
)

var (
	// verbosityLevel is the command-line flag for setting the log level
	verbosityLevel string
)

var rootCmd = &cobra.Command{
	Use:   "retileup",
	Short: "A batch image tiling and processing tool",
	Long: `ReTileUp extracts rectangular tiles from images using declarative
coordinate or grid specifications, and chains processing tools into
workflows applied across many input files in parallel.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set the global log level based on the flag
		logLevel := utils.LogLevelFromString(verbosityLevel)
		utils.SetLogLevel(logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Initialize global flags
	rootCmd.PersistentFlags().StringVarP(&verbosityLevel, "log-level", "l", "normal",
		"Set the logging verbosity level: quiet, normal, verbose, debug")
}
