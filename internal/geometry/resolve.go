package geometry

import (
	"fmt"
	"math"
)

// Resolve turns a tile specification into extraction rectangles validated
// against the image extent. All tiles are evaluated before returning: when
// one or more tiles fail validation, the valid tiles are returned alongside
// a non-nil ValidationErrors describing every rejected tile.
func Resolve(spec TileSpec, extent ImageExtent) ([]ResolvedTile, error) {
	if err := checkSpec(spec, extent); err != nil {
		return nil, err
	}

	if spec.IsGrid() {
		return resolveGrid(spec, extent)
	}
	return resolveCoordinates(spec, extent)
}

// checkSpec validates spec-level invariants that make every tile meaningless,
// as opposed to per-tile errors which are accumulated by the resolvers.
func checkSpec(spec TileSpec, extent ImageExtent) error {
	if extent.Width <= 0 || extent.Height <= 0 {
		return fmt.Errorf("invalid image extent %dx%d", extent.Width, extent.Height)
	}
	if len(spec.Coordinates) > 0 && spec.IsGrid() {
		return fmt.Errorf("tile spec cannot combine explicit coordinates with a grid")
	}
	if len(spec.Coordinates) == 0 && !spec.IsGrid() {
		return fmt.Errorf("tile spec requires either coordinates or a grid")
	}
	if spec.Overlap < 0 {
		return fmt.Errorf("overlap must be non-negative, got %d", spec.Overlap)
	}
	if spec.AspectRatio < 0 || math.IsNaN(spec.AspectRatio) || math.IsInf(spec.AspectRatio, 0) {
		return fmt.Errorf("aspect ratio must be a positive number, got %v", spec.AspectRatio)
	}
	if spec.IsGrid() {
		if spec.Rows < 1 || spec.Cols < 1 {
			return fmt.Errorf("grid requires rows >= 1 and cols >= 1, got %dx%d", spec.Rows, spec.Cols)
		}
		if spec.Rows > extent.Height || spec.Cols > extent.Width {
			return fmt.Errorf("grid %dx%d exceeds image extent %dx%d (cells would be empty)",
				spec.Rows, spec.Cols, extent.Width, extent.Height)
		}
		if spec.TileWidth < 0 || spec.TileHeight < 0 {
			return fmt.Errorf("tile dimensions must be non-negative in grid mode")
		}
	} else {
		if spec.TileWidth <= 0 || spec.TileHeight <= 0 {
			return fmt.Errorf("tile dimensions must be positive, got %dx%d", spec.TileWidth, spec.TileHeight)
		}
	}
	return nil
}

// resolveCoordinates handles the explicit-coordinates variant. Bounds are
// checked against the nominal rectangle; overlap never excuses a tile whose
// nominal bounds exceed the image.
func resolveCoordinates(spec TileSpec, extent ImageExtent) ([]ResolvedTile, error) {
	tiles := make([]ResolvedTile, 0, len(spec.Coordinates))
	var errs ValidationErrors

	for i, pt := range spec.Coordinates {
		if reason := checkNominal(pt, spec, extent); reason != "" {
			errs = append(errs, &ValidationError{Point: pt, Index: i, Reason: reason})
			continue
		}

		rect := Rect{X: pt.X, Y: pt.Y, Width: spec.TileWidth, Height: spec.TileHeight}
		rect = growAndClamp(rect, spec.Overlap, extent)
		if spec.AspectRatio > 0 {
			rect = shrinkToAspect(rect, spec.AspectRatio)
		}

		tiles = append(tiles, ResolvedTile{Rect: rect, Origin: pt, Row: -1, Col: -1, Index: i})
	}

	if len(errs) > 0 {
		return tiles, errs
	}
	return tiles, nil
}

// checkNominal returns a rejection reason for an out-of-bounds nominal
// rectangle, or "" if the tile is valid.
func checkNominal(pt Point, spec TileSpec, extent ImageExtent) string {
	if pt.X < 0 || pt.Y < 0 {
		return fmt.Sprintf("coordinates must be non-negative, got (%d, %d)", pt.X, pt.Y)
	}
	right := pt.X + spec.TileWidth
	bottom := pt.Y + spec.TileHeight
	switch {
	case right > extent.Width && bottom > extent.Height:
		return fmt.Sprintf("tile extends beyond image width (ends at x=%d, width=%d) and height (ends at y=%d, height=%d)",
			right, extent.Width, bottom, extent.Height)
	case right > extent.Width:
		return fmt.Sprintf("tile extends beyond image width (ends at x=%d, width=%d)", right, extent.Width)
	case bottom > extent.Height:
		return fmt.Sprintf("tile extends beyond image height (ends at y=%d, height=%d)", bottom, extent.Height)
	}
	return ""
}

// resolveGrid divides the extent into equal integer spans; the last row and
// column absorb the remainder pixels so coverage has no gaps at overlap=0.
func resolveGrid(spec TileSpec, extent ImageExtent) ([]ResolvedTile, error) {
	spanW := extent.Width / spec.Cols
	spanH := extent.Height / spec.Rows

	tiles := make([]ResolvedTile, 0, spec.Rows*spec.Cols)
	var errs ValidationErrors

	for row := 0; row < spec.Rows; row++ {
		for col := 0; col < spec.Cols; col++ {
			index := row*spec.Cols + col
			origin := Point{X: col * spanW, Y: row * spanH}
			rect := Rect{X: origin.X, Y: origin.Y, Width: spanW, Height: spanH}
			if col == spec.Cols-1 {
				rect.Width = extent.Width - rect.X
			}
			if row == spec.Rows-1 {
				rect.Height = extent.Height - rect.Y
			}

			// Tile dimensions are advisory targets in grid mode; they only
			// constrain the computed spans when an aspect ratio is requested.
			if spec.AspectRatio > 0 && spec.TileWidth > 0 && rect.Width > spec.TileWidth {
				errs = append(errs, &ValidationError{
					Point:  Point{X: rect.X, Y: rect.Y},
					Index:  index,
					Reason: fmt.Sprintf("cell span %dpx exceeds target tile width %dpx", rect.Width, spec.TileWidth),
				})
				continue
			}
			if spec.AspectRatio > 0 && spec.TileHeight > 0 && rect.Height > spec.TileHeight {
				errs = append(errs, &ValidationError{
					Point:  Point{X: rect.X, Y: rect.Y},
					Index:  index,
					Reason: fmt.Sprintf("cell span %dpx exceeds target tile height %dpx", rect.Height, spec.TileHeight),
				})
				continue
			}

			rect = growAndClamp(rect, spec.Overlap, extent)
			if spec.AspectRatio > 0 {
				rect = shrinkToAspect(rect, spec.AspectRatio)
			}

			tiles = append(tiles, ResolvedTile{Rect: rect, Origin: origin, Row: row, Col: col, Index: index})
		}
	}

	if len(errs) > 0 {
		return tiles, errs
	}
	return tiles, nil
}

// growAndClamp expands the rectangle by overlap pixels on every side, then
// clamps each axis independently to the image bounds. A tile near the left
// edge is clamped only on the left; the asymmetry is intentional.
func growAndClamp(rect Rect, overlap int, extent ImageExtent) Rect {
	if overlap <= 0 {
		return rect
	}

	left := rect.X - overlap
	top := rect.Y - overlap
	right := rect.Right() + overlap
	bottom := rect.Bottom() + overlap

	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	if right > extent.Width {
		right = extent.Width
	}
	if bottom > extent.Height {
		bottom = extent.Height
	}

	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// shrinkToAspect reduces the rectangle about its center to the largest
// rectangle with the requested width/height ratio that fits inside it. The
// rectangle is never grown. When integer rounding makes an exact fit
// impossible, the dimension with the smaller absolute pixel change is
// reduced, preferring width on a tie.
func shrinkToAspect(rect Rect, ratio float64) Rect {
	// Candidate A keeps the full height and reduces width; it is feasible
	// only if the rounded width does not grow the rectangle. Candidate B
	// keeps the full width and reduces height, symmetrically.
	widthA := int(math.Round(ratio * float64(rect.Height)))
	feasibleA := widthA >= 1 && widthA <= rect.Width

	heightB := int(math.Round(float64(rect.Width) / ratio))
	feasibleB := heightB >= 1 && heightB <= rect.Height

	var width, height int
	switch {
	case feasibleA && feasibleB:
		if rect.Width-widthA <= rect.Height-heightB {
			width, height = widthA, rect.Height
		} else {
			width, height = rect.Width, heightB
		}
	case feasibleA:
		width, height = widthA, rect.Height
	case feasibleB:
		width, height = rect.Width, heightB
	default:
		// Rounding pushed both candidates out of bounds; fall back to
		// flooring the width so the result still fits.
		width = int(ratio * float64(rect.Height))
		if width < 1 {
			width = 1
		}
		if width > rect.Width {
			width = rect.Width
		}
		height = rect.Height
	}

	return Rect{
		X:      rect.X + (rect.Width-width)/2,
		Y:      rect.Y + (rect.Height-height)/2,
		Width:  width,
		Height: height,
	}
}
