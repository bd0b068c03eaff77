package processor

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/metrics"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

func cropConfig(t *testing.T, root string) *utils.Config {
	config := utils.NewConfig()
	config.SourceRoot = filepath.Join(root, "tif")
	config.OutputRoot = filepath.Join(root, "cropped")
	config.BoundaryPath = writeFile(t, filepath.Join(root, "lake_simcoe.geojson"), lakeGeoJSON)
	return config
}

func TestCropFileLevel3(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	src := writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif"), gridRaster(8, 8, -32767))

	job, err := NewCropJob(config, nil)
	require.NoError(t, err)
	assert.Equal(t, "lake_simcoe", job.Boundary.Name)

	res := job.CropFile(src)
	require.NoError(t, res.Err)
	assert.Equal(t, metrics.StatusKept, res.Status)
	assert.Equal(t, filepath.Join(config.OutputRoot, "level3_chl_a", "global", "lake_simcoe", "PACE_OCI.X.tif"), res.Output)
	require.NotNil(t, res.ValidProportion)
	assert.Equal(t, 1.0, *res.ValidProportion)

	data, nodata, ok, err := utils.ReadBandFile(res.Output, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, math.IsNaN(nodata))
	assert.Equal(t, []float64{18, 19, 26, 27}, data)
}

func TestCropIsIdempotent(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	src := writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif"), gridRaster(8, 8, 18))

	job, err := NewCropJob(config, nil)
	require.NoError(t, err)
	first := job.CropFile(src)
	require.NoError(t, first.Err)
	assert.Equal(t, 0.75, *first.ValidProportion)

	// cropping the crop again by the same boundary changes nothing
	again := *config
	again.SourceRoot = config.OutputRoot
	again.OutputRoot = filepath.Join(root, "cropped_twice")
	job2, err := NewCropJob(&again, nil)
	require.NoError(t, err)
	second := job2.CropFile(first.Output)
	require.NoError(t, second.Err)
	assert.Equal(t, filepath.Join(again.OutputRoot, "level3_chl_a", "global", "lake_simcoe", "lake_simcoe", "PACE_OCI.X.tif"), second.Output)

	a, _, _, err := utils.ReadBandFile(first.Output, 1)
	require.NoError(t, err)
	b, _, _, err := utils.ReadBandFile(second.Output, 1)
	require.NoError(t, err)
	require.Len(t, b, len(a))
	assert.Equal(t, countNaN(a), countNaN(b))
	for i := range a {
		if !math.IsNaN(a[i]) {
			assert.Equal(t, a[i], b[i])
		}
	}
	assert.Equal(t, *first.ValidProportion, *second.ValidProportion)
}

func TestCropRunTwiceSameDecisions(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	config.Threshold = 0.8
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif"), gridRaster(8, 8, -32767))
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.Y.tif"), gridRaster(8, 8, 18))

	decisions := func() map[string]string {
		job, err := NewCropJob(config, nil)
		require.NoError(t, err)
		info, err := job.Run()
		require.NoError(t, err)
		out := make(map[string]string)
		for _, f := range info.Files {
			out[f.Path] = f.Status
		}
		return out
	}

	first := decisions()
	second := decisions()
	assert.Equal(t, first, second)
	assert.Equal(t, metrics.StatusKept, first[filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif")])
	assert.Equal(t, metrics.StatusDeleted, first[filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.Y.tif")])
}

func TestCropThreshold(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	src := writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif"), gridRaster(8, 8, 18))

	// 3 of 4 pixels are valid
	config.Threshold = 0.75
	job, err := NewCropJob(config, nil)
	require.NoError(t, err)
	res := job.CropFile(src)
	assert.Equal(t, metrics.StatusKept, res.Status)

	config.Threshold = 0.76
	job, err = NewCropJob(config, nil)
	require.NoError(t, err)
	res = job.CropFile(src)
	assert.Equal(t, metrics.StatusDeleted, res.Status)
	_, err = os.Stat(res.Output)
	assert.True(t, os.IsNotExist(err))
}

func TestCropFileErrors(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	job, err := NewCropJob(config, nil)
	require.NoError(t, err)

	// level-3 paths need a global directory
	res := job.CropFile(writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "PACE_OCI.X.tif"), gridRaster(8, 8, -32767)))
	assert.Equal(t, ErrPath, KindOf(res.Err))

	res = job.CropFile(writeFile(t, filepath.Join(config.SourceRoot, "level2_bgc", "broken.tif"), "not a tiff"))
	assert.Equal(t, ErrOpen, KindOf(res.Err))

	far := gridRaster(8, 8, -32767)
	far.GeoTransform[0] = 100
	res = job.CropFile(writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "far.tif"), far))
	assert.Equal(t, ErrClip, KindOf(res.Err))
	assert.Equal(t, metrics.StatusFailed, res.Status)

	noCRS := gridRaster(8, 8, -32767)
	noCRS.CRS = ""
	res = job.CropFile(writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "nocrs.tif"), noCRS))
	assert.Equal(t, ErrCRS, KindOf(res.Err))

	config.BoundaryPath = filepath.Join(root, "missing.geojson")
	_, err = NewCropJob(config, nil)
	assert.Error(t, err)
}

func TestCropJobRun(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif"), gridRaster(8, 8, -32767))
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.Y.tif"), gridRaster(8, 8, 18))

	empty := gridRaster(8, 8, math.NaN())
	for i := range empty.Bands[0].Data {
		empty.Bands[0].Data[i] = float32(math.NaN())
	}
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.Z.tif"), empty)

	logger := &metrics.MemoryLogger{}
	job, err := NewCropJob(config, logger)
	require.NoError(t, err)
	info, err := job.Run()
	require.NoError(t, err)

	assert.Equal(t, 3, info.NumFiles)
	assert.Equal(t, 2, info.Kept)
	assert.Equal(t, 1, info.Deleted)
	assert.Equal(t, config.BoundaryPath, info.Boundary)
	require.NotNil(t, info.Threshold)
	assert.Equal(t, 0.1, *info.Threshold)
	require.Len(t, logger.Runs, 1)
}

func TestCropJobWalkRoot(t *testing.T) {
	root := t.TempDir()
	config := cropConfig(t, root)
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_chl_a", "global", "PACE_OCI.X.tif"), gridRaster(8, 8, -32767))
	writeRaster(t, filepath.Join(config.SourceRoot, "level3_kd", "global", "PACE_OCI.Y.tif"), gridRaster(8, 8, -32767))

	// walking inside global still places the boundary after it
	config.WalkRoot = filepath.Join(config.SourceRoot, "level3_chl_a", "global")
	job, err := NewCropJob(config, nil)
	require.NoError(t, err)
	info, err := job.Run()
	require.NoError(t, err)

	assert.Equal(t, 1, info.NumFiles)
	assert.Equal(t, 1, info.Kept)
	_, err = os.Stat(filepath.Join(config.OutputRoot, "level3_chl_a", "global", "lake_simcoe", "PACE_OCI.X.tif"))
	assert.NoError(t, err)
}
