package processor

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var northUp = [6]float64{-81, 0.5, 0, 46, 0, -0.5}

// lShape covers the (-80, 44) (-79, 45) square but its upper right quarter.
var lShape = orb.MultiPolygon{{{
	{-80, 44}, {-79, 44}, {-79, 44.5}, {-79.5, 44.5}, {-79.5, 45}, {-80, 45}, {-80, 44},
}}}

func TestBoundaryWindow(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{-80, 44}, Max: orb.Point{-79, 45}}
	win, err := BoundaryWindow(bound, northUp, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, Window{XOff: 2, YOff: 2, XSize: 2, YSize: 2}, win)

	// partly off the raster
	bound = orb.Bound{Min: orb.Point{-82, 45.2}, Max: orb.Point{-80.8, 47}}
	win, err = BoundaryWindow(bound, northUp, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, Window{XOff: 0, YOff: 0, XSize: 1, YSize: 2}, win)

	// south-up rasters
	southUp := [6]float64{-81, 0.5, 0, 42, 0, 0.5}
	bound = orb.Bound{Min: orb.Point{-80, 44}, Max: orb.Point{-79, 45}}
	win, err = BoundaryWindow(bound, southUp, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, Window{XOff: 2, YOff: 4, XSize: 2, YSize: 2}, win)

	_, err = BoundaryWindow(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, northUp, 8, 8)
	assert.Error(t, err)

	_, err = BoundaryWindow(bound, [6]float64{-81, 0.5, 0.1, 46, 0, -0.5}, 8, 8)
	assert.Error(t, err)
}

func TestBoundaryWindowUnbounded(t *testing.T) {
	inf := math.Inf(1)
	win, err := BoundaryWindow(orb.Bound{Min: orb.Point{-inf, -inf}, Max: orb.Point{inf, inf}}, northUp, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, Window{XOff: 0, YOff: 0, XSize: 8, YSize: 8}, win)

	// far beyond the int range on one side only
	win, err = BoundaryWindow(orb.Bound{Min: orb.Point{-1e300, 44}, Max: orb.Point{-79, 1e300}}, northUp, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, Window{XOff: 0, YOff: 0, XSize: 4, YSize: 4}, win)

	nan := math.NaN()
	_, err = BoundaryWindow(orb.Bound{Min: orb.Point{nan, nan}, Max: orb.Point{nan, nan}}, northUp, 8, 8)
	assert.Error(t, err)
}

func TestClipMask(t *testing.T) {
	win := Window{XOff: 2, YOff: 2, XSize: 2, YSize: 2}
	mask := ClipMask(lShape, northUp, win)
	assert.Equal(t, []bool{true, false, true, true}, mask)
}

func TestClipRaster(t *testing.T) {
	raster := gridRaster(8, 8, 18)
	path := writeRaster(t, filepath.Join(t.TempDir(), "grid.tif"), raster)

	hDataset, err := godal.Open(path)
	require.NoError(t, err)
	defer hDataset.Close()

	out, err := ClipRaster(hDataset, lShape)
	require.NoError(t, err)

	assert.Equal(t, [6]float64{-80, 0.5, 0, 45, 0, -0.5}, out.GeoTransform)
	require.Len(t, out.Bands, 1)
	b := out.Bands[0]
	assert.Equal(t, 2, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, "chlor_a", b.NameSpace)
	assert.True(t, math.IsNaN(b.NoData))

	// pixel 18 is source no-data, pixel 19 lies outside the shape
	assert.True(t, math.IsNaN(float64(b.Data[0])))
	assert.True(t, math.IsNaN(float64(b.Data[1])))
	assert.Equal(t, float32(26), b.Data[2])
	assert.Equal(t, float32(27), b.Data[3])

	_, err = ClipRaster(hDataset, orb.MultiPolygon{{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}})
	assert.Error(t, err)
	_, err = ClipRaster(hDataset, nil)
	assert.Error(t, err)
}
