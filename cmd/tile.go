package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/retileup/retileup/internal/orchestrator"
	"github.com/retileup/retileup/internal/tools"
	"github.com/retileup/retileup/internal/utils"
)

var (
	tileInput       string
	tileOutput      string
	tileWidth       int
	tileHeight      int
	tileCoords      []string
	tileGrid        string
	tileOverlap     int
	tileAspectRatio float64
	tilePattern     string
	tileFormat      string
	tileQuality     int
	tileDryRun      bool
)

var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Extract tiles from a single image",
	Long: `Extract rectangular tiles from one image, either at explicit x,y
coordinates or on a rows x cols grid. This is a direct invocation of the
tile tool without a workflow file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := utils.ValidateInputFile(tileInput); err != nil {
			return err
		}

		toolConfig, err := buildTileConfig()
		if err != nil {
			return err
		}

		registry, err := tools.NewRegistry()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		orch := orchestrator.New(registry)
		result := orch.Run(ctx, "tile", "tile", tileInput, toolConfig)
		if !result.Success {
			return fmt.Errorf("tiling failed: %s", result.Error)
		}

		if tileDryRun {
			utils.LogInfo("Dry run: %d tiles would be written", len(result.Outputs))
		} else {
			utils.LogSuccess("Extracted %d tiles in %s", len(result.Outputs), result.Elapsed.Round(0))
		}
		for _, out := range result.Outputs {
			utils.LogVerbose("  %s", out)
		}
		return nil
	},
}

// buildTileConfig assembles the tile tool configuration from the CLI flags.
func buildTileConfig() (map[string]interface{}, error) {
	if len(tileCoords) > 0 && tileGrid != "" {
		return nil, fmt.Errorf("--coords and --grid are mutually exclusive")
	}
	if len(tileCoords) == 0 && tileGrid == "" {
		return nil, fmt.Errorf("either --coords or --grid is required")
	}

	config := map[string]interface{}{
		"tileWidth":  tileWidth,
		"tileHeight": tileHeight,
		"overlap":    tileOverlap,
		"output":     tileOutput,
		"dryRun":     tileDryRun,
	}
	if tileAspectRatio > 0 {
		config["aspectRatio"] = tileAspectRatio
	}
	if tilePattern != "" {
		config["outputPattern"] = tilePattern
	}
	if tileFormat != "" {
		config["format"] = tileFormat
	}
	if tileQuality > 0 {
		config["quality"] = tileQuality
	}

	if tileGrid != "" {
		rows, cols, err := parseGrid(tileGrid)
		if err != nil {
			return nil, err
		}
		config["rows"] = rows
		config["cols"] = cols
		return config, nil
	}

	coords := make([][]int, 0, len(tileCoords))
	for _, raw := range tileCoords {
		parts := strings.Split(raw, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid coordinate %q (expected x,y)", raw)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("invalid coordinate %q (expected integers)", raw)
		}
		coords = append(coords, []int{x, y})
	}
	config["coordinates"] = coords
	return config, nil
}

// parseGrid parses a RxC grid flag like "4x3".
func parseGrid(raw string) (rows, cols int, err error) {
	parts := strings.SplitN(strings.ToLower(raw), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid grid %q (expected ROWSxCOLS, e.g. 4x3)", raw)
	}
	rows, errR := strconv.Atoi(parts[0])
	cols, errC := strconv.Atoi(parts[1])
	if errR != nil || errC != nil || rows < 1 || cols < 1 {
		return 0, 0, fmt.Errorf("invalid grid %q (expected positive ROWSxCOLS)", raw)
	}
	return rows, cols, nil
}

func init() {
	tileCmd.Flags().StringVarP(&tileInput, "input", "i", "", "Input image file (required)")
	tileCmd.Flags().StringVarP(&tileOutput, "output", "o", "tiles", "Output directory")
	tileCmd.Flags().IntVar(&tileWidth, "width", 0, "Tile width in pixels")
	tileCmd.Flags().IntVar(&tileHeight, "height", 0, "Tile height in pixels")
	tileCmd.Flags().StringSliceVar(&tileCoords, "coords", nil, "Tile origin as x,y (repeatable)")
	tileCmd.Flags().StringVar(&tileGrid, "grid", "", "Grid as ROWSxCOLS, e.g. 4x3")
	tileCmd.Flags().IntVar(&tileOverlap, "overlap", 0, "Overlap in pixels grown around each tile")
	tileCmd.Flags().Float64Var(&tileAspectRatio, "aspect-ratio", 0, "Width/height constraint applied by shrinking")
	tileCmd.Flags().StringVar(&tilePattern, "pattern", "", "Output filename pattern")
	tileCmd.Flags().StringVar(&tileFormat, "format", "", "Output format: jpeg, png, webp, bmp")
	tileCmd.Flags().IntVar(&tileQuality, "quality", 0, "Encoder quality for lossy formats")
	tileCmd.Flags().BoolVar(&tileDryRun, "dry-run", false, "Resolve and name tiles without writing files")
	_ = tileCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(tileCmd)
}
