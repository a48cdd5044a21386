// Package rename implements the batch renaming tool. Files are copied into
// the output directory under a date plus incrementing index schema; a
// tracking file keeps the index unique across batches.
package rename

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/retileup/retileup/internal/geometry"
	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/utils"
)

// DefaultPattern is the date-and-index naming schema.
const DefaultPattern = "{date}_{index}"

// DefaultDateFormat is the Go layout used for the {date} placeholder.
const DefaultDateFormat = "2006-01-02"

// trackMu serializes access to the shared tracking file across concurrent
// tool invocations within one process.
var trackMu sync.Mutex

// Tool renames image files under a sequential schema
type Tool struct{}

// Params contains the parameters for batch renaming
type Params struct {
	Output         string `json:"output"`         // Output directory (required)
	NamingPattern  string `json:"namingPattern"`  // Pattern with {date} and {index}
	DateFormat     string `json:"dateFormat"`     // Go time layout for {date}
	ProcessedFile  string `json:"processedFile"`  // Tracking file for cross-batch uniqueness
	ForceOverwrite bool   `json:"forceOverwrite"` // Overwrite existing output files
	DeleteOriginal bool   `json:"deleteOriginal"` // Remove the source after a successful copy
}

// New creates a new rename tool instance
func New() tool.Tool {
	return &Tool{}
}

// Name returns the tool name
func (t *Tool) Name() string {
	return "rename"
}

// Description returns the tool description
func (t *Tool) Description() string {
	return "Rename image files under a date-based incrementing schema"
}

func (p *Params) namingPattern() string {
	if p.NamingPattern == "" {
		return DefaultPattern
	}
	return p.NamingPattern
}

func (p *Params) dateFormat() string {
	if p.DateFormat == "" {
		return DefaultDateFormat
	}
	return p.DateFormat
}

func (p *Params) processedFile() string {
	if p.ProcessedFile == "" {
		return filepath.Join(p.Output, "processed.txt")
	}
	return p.ProcessedFile
}

// ValidateConfig checks the renaming parameters. The image extent is unused;
// renaming is content-agnostic.
func (t *Tool) ValidateConfig(config map[string]interface{}, _ geometry.ImageExtent) []error {
	var p Params
	if err := tool.ParseParams(config, &p); err != nil {
		return []error{err}
	}

	var errs []error

	if p.Output == "" {
		errs = append(errs, &utils.ValidationError{Field: "output", Message: "output directory is required"})
	}

	pattern := p.namingPattern()
	if !strings.Contains(pattern, "{date}") || !strings.Contains(pattern, "{index}") {
		errs = append(errs, &utils.ValidationError{
			Field:   "namingPattern",
			Message: fmt.Sprintf("pattern %q must contain {date} and {index} placeholders", pattern),
		})
	}

	// A layout that cannot round-trip the current time is malformed.
	layout := p.dateFormat()
	rendered := time.Now().Format(layout)
	if _, err := time.Parse(layout, rendered); err != nil {
		errs = append(errs, &utils.ValidationError{
			Field:   "dateFormat",
			Message: fmt.Sprintf("invalid date layout %q", layout),
			Err:     err,
		})
	}

	return errs
}

// Process copies the input file to its new name and records it in the
// tracking file.
func (t *Tool) Process(ctx context.Context, input string, config map[string]interface{}) (tool.Result, error) {
	var p Params
	if err := tool.ParseParams(config, &p); err != nil {
		return tool.Result{}, err
	}

	if err := ctx.Err(); err != nil {
		return tool.Result{}, fmt.Errorf("rename interrupted: %w", err)
	}

	if err := utils.ValidateOutputDir(p.Output); err != nil {
		return tool.Result{}, err
	}

	trackMu.Lock()
	defer trackMu.Unlock()

	processed, err := utils.ReadLines(p.processedFile())
	if err != nil {
		return tool.Result{}, fmt.Errorf("failed to read tracking file: %w", err)
	}

	date := time.Now().Format(p.dateFormat())
	index := len(processed) + 1
	ext := strings.ToLower(filepath.Ext(input))

	name := strings.NewReplacer(
		"{date}", date,
		"{index}", fmt.Sprintf("%09d", index),
	).Replace(p.namingPattern()) + ext
	outPath := filepath.Join(p.Output, name)

	if _, err := os.Stat(outPath); err == nil && !p.ForceOverwrite {
		return tool.Result{}, fmt.Errorf("output file already exists: %s", outPath)
	}

	if err := utils.CopyFile(input, outPath); err != nil {
		return tool.Result{}, fmt.Errorf("failed to copy %s: %w", input, err)
	}

	if err := utils.AppendLine(p.processedFile(), name); err != nil {
		return tool.Result{}, fmt.Errorf("failed to update tracking file: %w", err)
	}

	if p.DeleteOriginal {
		if err := os.Remove(input); err != nil {
			utils.LogWarning("Failed to remove original %s: %v", input, err)
		}
	}

	utils.LogVerbose("Renamed %s -> %s", input, outPath)

	return tool.Result{
		Outputs: []string{outPath},
		Metadata: map[string]interface{}{
			"index":    index,
			"original": input,
		},
	}, nil
}
