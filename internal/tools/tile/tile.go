// Package tile implements the tile extraction tool. It resolves a tile
// specification against the input image and writes one file per tile.
package tile

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/retileup/retileup/internal/geometry"
	"github.com/retileup/retileup/internal/imageio"
	"github.com/retileup/retileup/internal/tool"
	"github.com/retileup/retileup/internal/utils"
)

// DefaultPattern names explicit-coordinate tiles by their origin.
const DefaultPattern = "{base}_{x}_{y}.{ext}"

// DefaultGridPattern names grid tiles by their cell position.
const DefaultGridPattern = "{base}_r{row}_c{col}.{ext}"

// Tool extracts rectangular tiles from an image
type Tool struct{}

// Params contains the parameters for tile extraction
type Params struct {
	TileWidth     int     `json:"tileWidth"`     // Nominal tile width in pixels
	TileHeight    int     `json:"tileHeight"`    // Nominal tile height in pixels
	Coordinates   [][]int `json:"coordinates"`   // Explicit [x, y] tile origins
	Rows          int     `json:"rows"`          // Grid rows (grid mode)
	Cols          int     `json:"cols"`          // Grid columns (grid mode)
	Overlap       int     `json:"overlap"`       // Extra pixels grown around each tile
	AspectRatio   float64 `json:"aspectRatio"`   // Optional width/height constraint
	Output        string  `json:"output"`        // Output directory
	OutputPattern string  `json:"outputPattern"` // Filename pattern with placeholders
	Format        string  `json:"format"`        // Output format (default: input format)
	Quality       int     `json:"quality"`       // Encoder quality for lossy formats
	DryRun        bool    `json:"dryRun"`        // Resolve and name tiles without writing
}

// New creates a new tile tool instance
func New() tool.Tool {
	return &Tool{}
}

// Name returns the tool name
func (t *Tool) Name() string {
	return "tile"
}

// Description returns the tool description
func (t *Tool) Description() string {
	return "Extract rectangular tiles from images at explicit coordinates or on a grid"
}

// spec converts the parameters into a geometry tile specification
func (p *Params) spec() geometry.TileSpec {
	spec := geometry.TileSpec{
		Rows:        p.Rows,
		Cols:        p.Cols,
		TileWidth:   p.TileWidth,
		TileHeight:  p.TileHeight,
		Overlap:     p.Overlap,
		AspectRatio: p.AspectRatio,
	}
	for _, pair := range p.Coordinates {
		if len(pair) == 2 {
			spec.Coordinates = append(spec.Coordinates, geometry.Point{X: pair[0], Y: pair[1]})
		}
	}
	return spec
}

// pattern returns the effective output pattern for the active variant
func (p *Params) pattern() string {
	if p.OutputPattern != "" {
		return p.OutputPattern
	}
	if p.Rows > 0 || p.Cols > 0 {
		return DefaultGridPattern
	}
	return DefaultPattern
}

// ValidateConfig checks the parameters against the input image extent.
// Every problem is reported; geometry errors are accumulated per tile.
func (t *Tool) ValidateConfig(config map[string]interface{}, extent geometry.ImageExtent) []error {
	var p Params
	if err := tool.ParseParams(config, &p); err != nil {
		return []error{err}
	}

	var errs []error

	for i, pair := range p.Coordinates {
		if len(pair) != 2 {
			errs = append(errs, fmt.Errorf("coordinate %d must be an [x, y] pair, got %v", i, pair))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if p.Output == "" {
		errs = append(errs, &utils.ValidationError{Field: "output", Message: "output directory is required"})
	}

	pattern := p.pattern()
	if !strings.Contains(pattern, "{base}") || !strings.Contains(pattern, "{ext}") {
		errs = append(errs, &utils.ValidationError{
			Field:   "outputPattern",
			Message: fmt.Sprintf("pattern %q must contain {base} and {ext} placeholders", pattern),
		})
	}

	if p.Format != "" {
		if _, err := imageio.NormalizeFormat(p.Format); err != nil {
			errs = append(errs, &utils.ValidationError{Field: "format", Message: err.Error()})
		}
	}

	tiles, err := geometry.Resolve(p.spec(), extent)
	if err != nil {
		var verrs geometry.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			for _, verr := range verrs {
				errs = append(errs, verr)
			}
		} else {
			errs = append(errs, err)
		}
	}

	// The pattern must keep distinct tiles distinct on disk.
	if len(tiles) > 1 {
		seen := make(map[string]geometry.ResolvedTile, len(tiles))
		for _, tl := range tiles {
			name := renderPattern(pattern, "input", "png", tl)
			if prev, dup := seen[name]; dup {
				errs = append(errs, &utils.ValidationError{
					Field: "outputPattern",
					Message: fmt.Sprintf("pattern %q produces the same filename for tiles %d and %d: %s",
						pattern, prev.Index, tl.Index, name),
				})
				break
			}
			seen[name] = tl
		}
	}

	return errs
}

// asValidationErrors unwraps accumulated geometry errors
func asValidationErrors(err error, target *geometry.ValidationErrors) bool {
	verrs, ok := err.(geometry.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// Process extracts and saves every resolved tile
func (t *Tool) Process(ctx context.Context, input string, config map[string]interface{}) (tool.Result, error) {
	var p Params
	if err := tool.ParseParams(config, &p); err != nil {
		return tool.Result{}, err
	}

	start := time.Now()

	extent, err := imageio.OpenExtent(input)
	if err != nil {
		return tool.Result{}, err
	}

	tiles, err := geometry.Resolve(p.spec(), extent)
	if err != nil {
		return tool.Result{}, fmt.Errorf("tile resolution failed: %w", err)
	}

	if !p.DryRun {
		if err := utils.ValidateOutputDir(p.Output); err != nil {
			return tool.Result{}, err
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	if p.Format != "" {
		if ext, err = imageio.NormalizeFormat(p.Format); err != nil {
			return tool.Result{}, err
		}
	} else if !imageio.CanEncode(ext) {
		// Decodable inputs without an encoder (gif, tiff) are written as png.
		ext = "png"
	}
	base := utils.BaseName(input)
	pattern := p.pattern()

	img, err := imageio.Load(input)
	if err != nil {
		return tool.Result{}, err
	}

	outputs := make([]string, 0, len(tiles))
	var pixels int64

	for _, tl := range tiles {
		if err := ctx.Err(); err != nil {
			return tool.Result{Outputs: outputs}, fmt.Errorf("tiling interrupted: %w", err)
		}

		outPath := filepath.Join(p.Output, renderPattern(pattern, base, ext, tl))
		if !p.DryRun {
			cropped := imageio.Crop(img, tl.Rect)
			if err := imageio.Save(cropped, outPath, ext, p.Quality); err != nil {
				return tool.Result{Outputs: outputs}, fmt.Errorf("failed to save tile %d: %w", tl.Index, err)
			}
		}

		outputs = append(outputs, outPath)
		pixels += int64(tl.Rect.Width) * int64(tl.Rect.Height)
		utils.LogVerbose("Tile %d -> %s (%dx%d at %d,%d)",
			tl.Index, outPath, tl.Rect.Width, tl.Rect.Height, tl.Rect.X, tl.Rect.Y)
	}

	elapsed := time.Since(start)
	pixelsPerSecond := 0.0
	if elapsed > 0 {
		pixelsPerSecond = float64(pixels) / elapsed.Seconds()
	}

	return tool.Result{
		Outputs: outputs,
		Metadata: map[string]interface{}{
			"tileCount":       len(tiles),
			"imageWidth":      extent.Width,
			"imageHeight":     extent.Height,
			"overlap":         p.Overlap,
			"pixelsProcessed": pixels,
			"pixelsPerSecond": pixelsPerSecond,
			"dryRun":          p.DryRun,
		},
	}, nil
}

// renderPattern substitutes the tile placeholders into an output pattern
func renderPattern(pattern, base, ext string, tile geometry.ResolvedTile) string {
	r := strings.NewReplacer(
		"{base}", base,
		"{ext}", ext,
		"{x}", strconv.Itoa(tile.Origin.X),
		"{y}", strconv.Itoa(tile.Origin.Y),
		"{row}", strconv.Itoa(tile.Row),
		"{col}", strconv.Itoa(tile.Col),
		"{index}", strconv.Itoa(tile.Index),
		"{width}", strconv.Itoa(tile.Rect.Width),
		"{height}", strconv.Itoa(tile.Rect.Height),
	)
	return r.Replace(pattern)
}
