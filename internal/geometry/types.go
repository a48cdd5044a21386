// Package geometry resolves tile specifications into validated pixel rectangles.
package geometry

import "fmt"

// Point is a pixel coordinate in the source image.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Rect is an axis-aligned rectangle with a non-negative origin.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Right returns the exclusive right edge of the rectangle.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge of the rectangle.
func (r Rect) Bottom() int { return r.Y + r.Height }

// ImageExtent holds the dimensions of a source image.
type ImageExtent struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// TileSpec describes how tiles should be placed on an image. Exactly one of
// the two variants must be active: explicit Coordinates, or a Rows x Cols grid.
type TileSpec struct {
	// Explicit-coordinates variant: top-left corners of the nominal tiles.
	Coordinates []Point

	// Grid variant: the image is divided into Rows x Cols cells.
	Rows int
	Cols int

	// Nominal tile size. Required in explicit mode; advisory in grid mode
	// where it is only checked against the computed cell spans when an
	// aspect ratio is set.
	TileWidth  int
	TileHeight int

	// Overlap is grown symmetrically around each tile and clamped to the
	// image bounds per axis.
	Overlap int

	// AspectRatio, when > 0, shrinks each resolved rectangle about its
	// center to the largest fitting rectangle with this width/height ratio.
	AspectRatio float64
}

// IsGrid reports whether the grid variant of the spec is active.
func (s TileSpec) IsGrid() bool { return s.Rows > 0 || s.Cols > 0 }

// ResolvedTile is one validated extraction rectangle. Rect is the final
// extraction rectangle after overlap growth and aspect shrinking; Origin is
// the nominal tile origin before either, which stays unique per tile even
// when clamping collapses grown rectangles at the image edges. Row and Col
// are -1 in explicit-coordinates mode.
type ResolvedTile struct {
	Rect   Rect
	Origin Point
	Row    int
	Col    int
	Index  int
}

// ValidationError describes one rejected tile.
type ValidationError struct {
	Point  Point
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tile %d at (%d, %d): %s", e.Index, e.Point.X, e.Point.Y, e.Reason)
}

// ValidationErrors accumulates every rejected tile so callers can report the
// complete list in one pass.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d tiles rejected:", len(e))
	for _, err := range e {
		msg += "\n  " + err.Error()
	}
	return msg
}
