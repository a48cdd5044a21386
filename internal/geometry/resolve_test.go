package geometry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveGrid(t *testing.T) {
	tests := []struct {
		name   string
		spec   TileSpec
		extent ImageExtent
		want   int
	}{
		{
			name:   "4x3 grid on 1024x768",
			spec:   TileSpec{Rows: 4, Cols: 3},
			extent: ImageExtent{Width: 1024, Height: 768},
			want:   12,
		},
		{
			name:   "single cell",
			spec:   TileSpec{Rows: 1, Cols: 1},
			extent: ImageExtent{Width: 100, Height: 50},
			want:   1,
		},
		{
			name:   "uneven division",
			spec:   TileSpec{Rows: 3, Cols: 3},
			extent: ImageExtent{Width: 100, Height: 100},
			want:   9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiles, err := Resolve(tt.spec, tt.extent)
			assert.NoError(t, err)
			assert.Len(t, tiles, tt.want)
		})
	}
}

func TestResolveGridRowMajorIndices(t *testing.T) {
	tiles, err := Resolve(TileSpec{Rows: 4, Cols: 3}, ImageExtent{Width: 1024, Height: 768})
	require.NoError(t, err)
	require.Len(t, tiles, 12)

	for i, tile := range tiles {
		assert.Equal(t, i, tile.Index)
		assert.Equal(t, i/3, tile.Row)
		assert.Equal(t, i%3, tile.Col)
	}

	// 1024/3 truncates to 341 for the first two columns; the last absorbs
	// the remainder. 768/4 divides evenly.
	assert.Equal(t, 341, tiles[0].Rect.Width)
	assert.Equal(t, 342, tiles[2].Rect.Width)
	for _, tile := range tiles {
		assert.Equal(t, 192, tile.Rect.Height)
	}
}

func TestResolveGridFullCoverage(t *testing.T) {
	// At overlap=0 the union of grid tiles covers every pixel exactly once.
	extents := []ImageExtent{
		{Width: 1024, Height: 768},
		{Width: 101, Height: 53},
		{Width: 7, Height: 7},
	}
	grids := []struct{ rows, cols int }{{1, 1}, {2, 2}, {3, 5}, {7, 7}}

	for _, extent := range extents {
		for _, g := range grids {
			name := fmt.Sprintf("%dx%d_grid_%dx%d", extent.Width, extent.Height, g.rows, g.cols)
			t.Run(name, func(t *testing.T) {
				tiles, err := Resolve(TileSpec{Rows: g.rows, Cols: g.cols}, extent)
				require.NoError(t, err)

				covered := make([]bool, extent.Width*extent.Height)
				for _, tile := range tiles {
					for y := tile.Rect.Y; y < tile.Rect.Bottom(); y++ {
						for x := tile.Rect.X; x < tile.Rect.Right(); x++ {
							idx := y*extent.Width + x
							require.False(t, covered[idx], "pixel (%d,%d) covered twice", x, y)
							covered[idx] = true
						}
					}
				}
				for i, c := range covered {
					require.True(t, c, "pixel %d not covered", i)
				}
			})
		}
	}
}

func TestResolveExplicitCoordinates(t *testing.T) {
	spec := TileSpec{
		Coordinates: []Point{{X: 0, Y: 0}, {X: 900, Y: 700}},
		TileWidth:   200,
		TileHeight:  200,
	}
	tiles, err := Resolve(spec, ImageExtent{Width: 1024, Height: 768})

	// (0,0) resolves; (900,700) exceeds both axes and is rejected, but the
	// valid tile is still returned.
	require.Len(t, tiles, 1)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 200, Height: 200}, tiles[0].Rect)
	assert.Equal(t, -1, tiles[0].Row)
	assert.Equal(t, -1, tiles[0].Col)

	require.Error(t, err)
	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, verrs, 1)
	assert.Equal(t, Point{X: 900, Y: 700}, verrs[0].Point)
	assert.Equal(t, 1, verrs[0].Index)
}

func TestResolveAccumulatesAllErrors(t *testing.T) {
	spec := TileSpec{
		Coordinates: []Point{
			{X: 1000, Y: 0},  // exceeds width
			{X: 0, Y: 700},   // exceeds height
			{X: 0, Y: 0},     // valid
			{X: 1000, Y: 700}, // exceeds both
		},
		TileWidth:  100,
		TileHeight: 100,
	}
	tiles, err := Resolve(spec, ImageExtent{Width: 1024, Height: 768})

	assert.Len(t, tiles, 1)
	require.Error(t, err)
	verrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, verrs, 3)
}

func TestResolveOverlapGrowth(t *testing.T) {
	// A non-edge tile grows by overlap on every side.
	spec := TileSpec{
		Coordinates: []Point{{X: 100, Y: 100}},
		TileWidth:   50,
		TileHeight:  50,
		Overlap:     10,
	}
	tiles, err := Resolve(spec, ImageExtent{Width: 500, Height: 500})
	require.NoError(t, err)
	require.Len(t, tiles, 1)

	assert.Equal(t, Rect{X: 90, Y: 90, Width: 70, Height: 70}, tiles[0].Rect)
}

func TestResolveOverlapClampedAtEdges(t *testing.T) {
	// A tile at the origin is clamped only on the left and top; growth on
	// the other sides is preserved.
	spec := TileSpec{
		Coordinates: []Point{{X: 0, Y: 0}},
		TileWidth:   50,
		TileHeight:  50,
		Overlap:     10,
	}
	tiles, err := Resolve(spec, ImageExtent{Width: 500, Height: 500})
	require.NoError(t, err)
	require.Len(t, tiles, 1)

	assert.Equal(t, Rect{X: 0, Y: 0, Width: 60, Height: 60}, tiles[0].Rect)
	assert.Equal(t, Point{X: 0, Y: 0}, tiles[0].Origin)
}

func TestResolveOverlapNeverExcusesBounds(t *testing.T) {
	// The nominal rect exactly fits, so overlap growth is clamped on the
	// right rather than rejected.
	fits := TileSpec{
		Coordinates: []Point{{X: 450, Y: 450}},
		TileWidth:   50,
		TileHeight:  50,
		Overlap:     10,
	}
	tiles, err := Resolve(fits, ImageExtent{Width: 500, Height: 500})
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 440, Y: 440, Width: 60, Height: 60}, tiles[0].Rect)

	// The nominal rect exceeds the extent by one pixel; overlap cannot
	// save it.
	exceeds := TileSpec{
		Coordinates: []Point{{X: 451, Y: 0}},
		TileWidth:   50,
		TileHeight:  50,
		Overlap:     10,
	}
	tiles, err = Resolve(exceeds, ImageExtent{Width: 500, Height: 500})
	assert.Error(t, err)
	assert.Empty(t, tiles)
}

func TestResolveAspectRatioShrinks(t *testing.T) {
	tests := []struct {
		name       string
		rect       Rect
		ratio      float64
		wantWidth  int
		wantHeight int
	}{
		{"too wide", Rect{X: 0, Y: 0, Width: 200, Height: 100}, 1.0, 100, 100},
		{"too tall", Rect{X: 0, Y: 0, Width: 100, Height: 200}, 1.0, 100, 100},
		{"exact fit untouched", Rect{X: 0, Y: 0, Width: 160, Height: 90}, 16.0 / 9.0, 160, 90},
		{"widescreen from square", Rect{X: 0, Y: 0, Width: 100, Height: 100}, 2.0, 100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shrinkToAspect(tt.rect, tt.ratio)
			assert.Equal(t, tt.wantWidth, got.Width)
			assert.Equal(t, tt.wantHeight, got.Height)
			// Shrinking never increases either dimension.
			assert.LessOrEqual(t, got.Width, tt.rect.Width)
			assert.LessOrEqual(t, got.Height, tt.rect.Height)
			// The result stays inside the original rectangle.
			assert.GreaterOrEqual(t, got.X, tt.rect.X)
			assert.GreaterOrEqual(t, got.Y, tt.rect.Y)
			assert.LessOrEqual(t, got.Right(), tt.rect.Right())
			assert.LessOrEqual(t, got.Bottom(), tt.rect.Bottom())
		})
	}
}

func TestResolveAspectRatioCentersShrink(t *testing.T) {
	got := shrinkToAspect(Rect{X: 100, Y: 100, Width: 200, Height: 100}, 1.0)
	assert.Equal(t, Rect{X: 150, Y: 100, Width: 100, Height: 100}, got)
}

func TestResolveAspectAppliedAfterOverlap(t *testing.T) {
	// Overlap growth happens first: 50x50 grows to 70x70, then the 1:2
	// aspect constraint shrinks width to 35.
	spec := TileSpec{
		Coordinates: []Point{{X: 100, Y: 100}},
		TileWidth:   50,
		TileHeight:  50,
		Overlap:     10,
		AspectRatio: 0.5,
	}
	tiles, err := Resolve(spec, ImageExtent{Width: 500, Height: 500})
	require.NoError(t, err)
	assert.Equal(t, 35, tiles[0].Rect.Width)
	assert.Equal(t, 70, tiles[0].Rect.Height)
}

func TestResolveGridAdvisoryTileSize(t *testing.T) {
	// Tile sizes are ignored in grid mode unless an aspect ratio is set.
	noAspect := TileSpec{Rows: 2, Cols: 2, TileWidth: 10, TileHeight: 10}
	tiles, err := Resolve(noAspect, ImageExtent{Width: 100, Height: 100})
	assert.NoError(t, err)
	assert.Len(t, tiles, 4)

	// With an aspect ratio, a span larger than the target size is an error.
	withAspect := TileSpec{Rows: 2, Cols: 2, TileWidth: 10, TileHeight: 10, AspectRatio: 1.0}
	tiles, err = Resolve(withAspect, ImageExtent{Width: 100, Height: 100})
	assert.Error(t, err)
	assert.Empty(t, tiles)
}

func TestResolveSpecErrors(t *testing.T) {
	tests := []struct {
		name   string
		spec   TileSpec
		extent ImageExtent
	}{
		{"no variant", TileSpec{TileWidth: 10, TileHeight: 10}, ImageExtent{Width: 100, Height: 100}},
		{"both variants", TileSpec{Coordinates: []Point{{X: 0, Y: 0}}, Rows: 2, Cols: 2, TileWidth: 10, TileHeight: 10}, ImageExtent{Width: 100, Height: 100}},
		{"zero tile width", TileSpec{Coordinates: []Point{{X: 0, Y: 0}}, TileHeight: 10}, ImageExtent{Width: 100, Height: 100}},
		{"negative overlap", TileSpec{Coordinates: []Point{{X: 0, Y: 0}}, TileWidth: 10, TileHeight: 10, Overlap: -1}, ImageExtent{Width: 100, Height: 100}},
		{"zero rows", TileSpec{Rows: 0, Cols: 2}, ImageExtent{Width: 100, Height: 100}},
		{"grid larger than image", TileSpec{Rows: 200, Cols: 2}, ImageExtent{Width: 100, Height: 100}},
		{"empty extent", TileSpec{Rows: 1, Cols: 1}, ImageExtent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiles, err := Resolve(tt.spec, tt.extent)
			assert.Error(t, err)
			assert.Nil(t, tiles)
		})
	}
}

func TestResolveNegativeCoordinateRejected(t *testing.T) {
	spec := TileSpec{
		Coordinates: []Point{{X: -1, Y: 0}},
		TileWidth:   10,
		TileHeight:  10,
	}
	tiles, err := Resolve(spec, ImageExtent{Width: 100, Height: 100})
	assert.Empty(t, tiles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-negative")
}
