package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/retileup/retileup/internal/tools"
	"github.com/retileup/retileup/internal/utils"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available processing tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := tools.NewRegistry()
		if err != nil {
			return err
		}

		list := registry.List()
		sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })

		for _, t := range list {
			utils.LogInfo("%-10s %s", t.Name(), t.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
