package processor

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

func init() {
	utils.InitGdal()
}

// Lake is a 1x1 degree square around (-79.5, 44.5).
const lakeGeoJSON = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {"name": "lake"},
    "geometry": {
      "type": "Polygon",
      "coordinates": [[[-80, 44], [-79, 44], [-79, 45], [-80, 45], [-80, 44]]]
    }
  }]
}`

func writeFile(t *testing.T, path string, content string) string {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

// gridRaster is a single band north-up EPSG:4326 raster with 0.5 degree
// pixels whose upper left corner is (-81, 46). Pixel i holds i.
func gridRaster(width, height int, nodata float64) *utils.GeoRaster {
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(i)
	}
	return &utils.GeoRaster{
		GeoTransform: [6]float64{-81, 0.5, 0, 46, 0, -0.5},
		CRS:          "EPSG:4326",
		Bands: []*utils.Float32Raster{{
			NameSpace: "chlor_a",
			Data:      data,
			Width:     width,
			Height:    height,
			NoData:    nodata,
		}},
	}
}

func writeRaster(t *testing.T, path string, r *utils.GeoRaster) string {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, utils.EncodeGeoTIFF(path, r, utils.NewConfig().Profile))
	return path
}

func countNaN(data []float64) int {
	n := 0
	for _, v := range data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
