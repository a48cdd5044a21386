// Package resize implements the image resize tool.
package resize

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/retileup/retileup/internal/geometry"
	"github.com/retileup/retileup/internal/imageio"
	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/utils"
)

// DefaultPattern names resized images by their target dimensions.
const DefaultPattern = "{base}_{width}x{height}.{ext}"

// Tool resizes images to target dimensions
type Tool struct{}

// Params contains the parameters for resizing
type Params struct {
	Width         int    `json:"width"`         // Target width; 0 preserves aspect from height
	Height        int    `json:"height"`        // Target height; 0 preserves aspect from width
	Filter        string `json:"filter"`        // Resampling filter: lanczos, linear, nearest
	Output        string `json:"output"`        // Output directory
	OutputPattern string `json:"outputPattern"` // Filename pattern with placeholders
	Format        string `json:"format"`        // Output format (default: input format)
	Quality       int    `json:"quality"`       // Encoder quality for lossy formats
	Upscale       bool   `json:"upscale"`       // Allow enlarging beyond the source size
}

// New creates a new resize tool instance
func New() tool.Tool {
	return &Tool{}
}

// Name returns the tool name
func (t *Tool) Name() string {
	return "resize"
}

// Description returns the tool description
func (t *Tool) Description() string {
	return "Resize images to target dimensions with a choice of resampling filters"
}

func (p *Params) pattern() string {
	if p.OutputPattern != "" {
		return p.OutputPattern
	}
	return DefaultPattern
}

func filterByName(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(name) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "linear":
		return imaging.Linear, nil
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box":
		return imaging.Box, nil
	default:
		return imaging.Lanczos, fmt.Errorf("unknown resampling filter: %s", name)
	}
}

// ValidateConfig checks the parameters against the input image extent
func (t *Tool) ValidateConfig(config map[string]interface{}, extent geometry.ImageExtent) []error {
	var p Params
	if err := tool.ParseParams(config, &p); err != nil {
		return []error{err}
	}

	var errs []error

	if p.Width < 0 || p.Height < 0 {
		errs = append(errs, &utils.ValidationError{
			Field:   "width/height",
			Message: fmt.Sprintf("dimensions must be non-negative, got %dx%d", p.Width, p.Height),
		})
	}
	if p.Width == 0 && p.Height == 0 {
		errs = append(errs, &utils.ValidationError{
			Field:   "width/height",
			Message: "at least one of width and height must be positive",
		})
	}
	if !p.Upscale && (p.Width > extent.Width || p.Height > extent.Height) {
		errs = append(errs, &utils.ValidationError{
			Field: "width/height",
			Message: fmt.Sprintf("target %dx%d exceeds source %dx%d and upscaling is disabled",
				p.Width, p.Height, extent.Width, extent.Height),
		})
	}
	if _, err := filterByName(p.Filter); err != nil {
		errs = append(errs, &utils.ValidationError{Field: "filter", Message: err.Error()})
	}
	if p.Output == "" {
		errs = append(errs, &utils.ValidationError{Field: "output", Message: "output directory is required"})
	}
	if p.Format != "" {
		if _, err := imageio.NormalizeFormat(p.Format); err != nil {
			errs = append(errs, &utils.ValidationError{Field: "format", Message: err.Error()})
		}
	}

	return errs
}

// Process resizes the input image and writes a single output file
func (t *Tool) Process(ctx context.Context, input string, config map[string]interface{}) (tool.Result, error) {
	var p Params
	if err := tool.ParseParams(config, &p); err != nil {
		return tool.Result{}, err
	}

	start := time.Now()

	if err := ctx.Err(); err != nil {
		return tool.Result{}, fmt.Errorf("resize interrupted: %w", err)
	}

	filter, err := filterByName(p.Filter)
	if err != nil {
		return tool.Result{}, err
	}

	if err := utils.ValidateOutputDir(p.Output); err != nil {
		return tool.Result{}, err
	}

	img, err := imageio.Load(input)
	if err != nil {
		return tool.Result{}, err
	}

	resized := imaging.Resize(img, p.Width, p.Height, filter)
	bounds := resized.Bounds()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	if p.Format != "" {
		if ext, err = imageio.NormalizeFormat(p.Format); err != nil {
			return tool.Result{}, err
		}
	} else if !imageio.CanEncode(ext) {
		// Decodable inputs without an encoder (gif, tiff) are written as png.
		ext = "png"
	}

	name := strings.NewReplacer(
		"{base}", utils.BaseName(input),
		"{ext}", ext,
		"{width}", strconv.Itoa(bounds.Dx()),
		"{height}", strconv.Itoa(bounds.Dy()),
	).Replace(p.pattern())
	outPath := filepath.Join(p.Output, name)

	if err := imageio.Save(resized, outPath, ext, p.Quality); err != nil {
		return tool.Result{}, err
	}

	utils.LogVerbose("Resized %s -> %s (%dx%d)", input, outPath, bounds.Dx(), bounds.Dy())

	return tool.Result{
		Outputs: []string{outPath},
		Metadata: map[string]interface{}{
			"width":     bounds.Dx(),
			"height":    bounds.Dy(),
			"filter":    p.Filter,
			"elapsedMs": time.Since(start).Milliseconds(),
		},
	}, nil
}
