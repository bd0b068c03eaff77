package processor

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

func TestHistogram(t *testing.T) {
	nan := math.NaN()
	hist := Histogram([]float64{3, nan, 1, 3, -32767, nan, nan})

	require.Len(t, hist, 4)
	assert.Equal(t, Bucket{Value: -32767, Count: 1}, hist[0])
	assert.Equal(t, Bucket{Value: 1, Count: 1}, hist[1])
	assert.Equal(t, Bucket{Value: 3, Count: 2}, hist[2])
	assert.True(t, math.IsNaN(hist[3].Value))
	assert.Equal(t, 3, hist[3].Count)

	assert.Empty(t, Histogram(nil))
}

func TestNoDataCount(t *testing.T) {
	hist := Histogram([]float64{-32767, -32767, 1, math.NaN()})
	assert.Equal(t, 2, NoDataCount(hist, -32767))
	assert.Equal(t, 1, NoDataCount(hist, math.NaN()))
	assert.Equal(t, 0, NoDataCount(hist, 0))
}

func TestValidProportionBoundary(t *testing.T) {
	nan := math.NaN()

	// 1 valid pixel of 10 sits exactly on a 0.1 threshold
	pixels := []float64{0.5, nan, nan, nan, nan, nan, nan, nan, nan, nan}
	prop := ValidProportion(pixels, nan)
	assert.Equal(t, 0.1, prop)
	assert.True(t, IsValid(prop, 0.1))

	pixels[0] = nan
	prop = ValidProportion(pixels, nan)
	assert.Equal(t, 0.0, prop)
	assert.False(t, IsValid(prop, 0.1))
	assert.True(t, IsValid(prop, 0))

	assert.Equal(t, 1.0, ValidProportion([]float64{1, 2, 3}, nan))
	assert.Equal(t, 0.0, ValidProportion(nil, nan))
}

func TestValidProportionIsKOverN(t *testing.T) {
	for n := 1; n <= 20; n++ {
		for k := 0; k <= n; k++ {
			pixels := make([]float64, n)
			for i := 0; i < k; i++ {
				pixels[i] = -1
			}
			prop := ValidProportion(pixels, -1)
			assert.Equal(t, float64(n-k)/float64(n), prop)
			threshold := float64(n-k) / float64(n)
			assert.True(t, IsValid(prop, threshold), "n=%d k=%d", n, k)
		}
	}
}

func TestVerifyRaster(t *testing.T) {
	dir := t.TempDir()
	nan := float32(math.NaN())

	path := filepath.Join(dir, "level3.tif")
	raster := &utils.GeoRaster{
		GeoTransform: [6]float64{0, 1, 0, 2, 0, -1},
		CRS:          "EPSG:4326",
		Bands: []*utils.Float32Raster{{
			Data:   []float32{-32767, 2, 4, -32767},
			Width:  2,
			Height: 2,
			NoData: -32767,
		}},
	}
	require.NoError(t, utils.EncodeGeoTIFF(path, raster, utils.NewConfig().Profile))

	v, err := VerifyRaster(path, extr.Level3)
	require.NoError(t, err)
	assert.Equal(t, 4, v.Total)
	assert.Equal(t, 2, v.NoData)
	assert.Equal(t, 0.5, v.Proportion)

	summary, err := v.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 2.0, summary.Min)
	assert.Equal(t, 4.0, summary.Max)
	assert.Equal(t, 3.0, summary.Mean)

	// level-2 rasters are measured against NaN whatever they declare
	v, err = VerifyRaster(path, extr.Level2)
	require.NoError(t, err)
	assert.Equal(t, 0, v.NoData)
	assert.Equal(t, 1.0, v.Proportion)

	path = filepath.Join(dir, "empty.tif")
	raster.Bands[0].Data = []float32{nan, nan, nan, nan}
	raster.Bands[0].NoData = math.NaN()
	require.NoError(t, utils.EncodeGeoTIFF(path, raster, utils.NewConfig().Profile))

	v, err = VerifyRaster(path, extr.Level2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Proportion)
	_, err = v.Summary()
	assert.Error(t, err)

	_, err = VerifyRaster(filepath.Join(dir, "missing.tif"), extr.Level3)
	assert.Error(t, err)
}
