package utils

import (
	"fmt"
	"math"
	"os"

	"github.com/airbusgeo/godal"
)

type Float32Raster struct {
	NameSpace     string
	Data          []float32
	Height, Width int
	NoData        float64
}

func (r *Float32Raster) GetNoData() float64 {
	return r.NoData
}

// IsNoData reports whether value is the raster's no-data sentinel. A
// NaN sentinel matches every NaN.
func (r *Float32Raster) IsNoData(value float32) bool {
	if math.IsNaN(r.NoData) {
		return math.IsNaN(float64(value))
	}
	return float64(value) == r.NoData
}

// GeoRaster is a stack of equally sized bands on a north-up grid. CRS
// takes anything GDAL accepts as user input, WKT included.
type GeoRaster struct {
	Bands        []*Float32Raster
	GeoTransform [6]float64
	CRS          string
}

func (r *GeoRaster) Width() int {
	if len(r.Bands) == 0 {
		return 0
	}
	return r.Bands[0].Width
}

func (r *GeoRaster) Height() int {
	if len(r.Bands) == 0 {
		return 0
	}
	return r.Bands[0].Height
}

func ValidateRasterSlice(rs []*Float32Raster) (int, int, error) {
	if len(rs) == 0 {
		return 0, 0, fmt.Errorf("Empty raster slice")
	}

	width, height := rs[0].Width, rs[0].Height
	for i, r := range rs {
		if r == nil {
			return 0, 0, fmt.Errorf("Band %d is nil", i+1)
		}
		if r.Width != width || r.Height != height {
			return 0, 0, fmt.Errorf("Band %d is %dx%d, expected %dx%d", i+1, r.Width, r.Height, width, height)
		}
		if len(r.Data) != width*height {
			return 0, 0, fmt.Errorf("Band %d holds %d pixels, expected %d", i+1, len(r.Data), width*height)
		}
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("Raster has no pixels")
	}
	return width, height, nil
}

// EncodeGeoTIFF writes r to path as a Float32 GeoTIFF using the creation
// options of profile. A partially written file is removed on failure.
func EncodeGeoTIFF(path string, r *GeoRaster, profile RasterProfile) error {
	width, height, err := ValidateRasterSlice(r.Bands)
	if err != nil {
		return fmt.Errorf("Error validating raster: %v", err)
	}

	hDstDS, err := godal.Create(godal.GTiff, path, len(r.Bands), godal.Float32, width, height,
		godal.CreationOption(profile.CreationOptions()...))
	if err != nil {
		return fmt.Errorf("Error creating raster %s: %v", path, err)
	}

	err = encodeGdal(hDstDS, r)
	if cErr := hDstDS.Close(); err == nil && cErr != nil {
		err = fmt.Errorf("Error closing raster %s: %v", path, cErr)
	}
	if err != nil {
		os.Remove(path)
	}
	return err
}

func encodeGdal(hDstDS *godal.Dataset, r *GeoRaster) error {
	if len(r.CRS) > 0 {
		sr, err := godal.NewSpatialRef(r.CRS)
		if err != nil {
			return fmt.Errorf("Invalid CRS %q: %v", r.CRS, err)
		}
		defer sr.Close()
		if err = hDstDS.SetSpatialRef(sr); err != nil {
			return err
		}
	}

	if err := hDstDS.SetGeoTransform(r.GeoTransform); err != nil {
		return err
	}

	for i, band := range hDstDS.Bands() {
		br := r.Bands[i]
		if err := band.SetNoData(br.NoData); err != nil {
			return err
		}
		if err := band.Write(0, 0, br.Data, br.Width, br.Height); err != nil {
			return fmt.Errorf("Error writing band %d: %v", i+1, err)
		}
		if len(br.NameSpace) > 0 {
			if err := band.SetDescription(br.NameSpace); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeRaster reads every band of an open dataset. Bands without a
// declared no-data value get NaN.
func DecodeRaster(ds *godal.Dataset) (*GeoRaster, error) {
	geot, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("Dataset has no geotransform: %v", err)
	}

	out := &GeoRaster{GeoTransform: geot, CRS: ds.Projection()}
	for i, band := range ds.Bands() {
		br, err := DecodeBand(band)
		if err != nil {
			return nil, fmt.Errorf("Error reading band %d: %v", i+1, err)
		}
		br.NameSpace = band.Description()
		out.Bands = append(out.Bands, br)
	}
	return out, nil
}

// DecodeBand reads a whole band as Float32.
func DecodeBand(band godal.Band) (*Float32Raster, error) {
	st := band.Structure()
	nodata, ok := band.NoData()
	if !ok {
		nodata = math.NaN()
	}
	br := &Float32Raster{
		Data:   make([]float32, st.SizeX*st.SizeY),
		Width:  st.SizeX,
		Height: st.SizeY,
		NoData: nodata,
	}
	if err := band.Read(0, 0, br.Data, st.SizeX, st.SizeY); err != nil {
		return nil, err
	}
	return br, nil
}

// ReadBandFile opens path and reads one band (1-based) as float64
// along with its declared no-data value.
func ReadBandFile(path string, index int) ([]float64, float64, bool, error) {
	ds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, 0, false, fmt.Errorf("Failed to open existing dataset: %s: %v", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if index < 1 || index > len(bands) {
		return nil, 0, false, fmt.Errorf("%s has %d bands, band %d requested", path, len(bands), index)
	}
	band := bands[index-1]
	st := band.Structure()
	data := make([]float64, st.SizeX*st.SizeY)
	if err := band.Read(0, 0, data, st.SizeX, st.SizeY); err != nil {
		return nil, 0, false, err
	}
	nodata, ok := band.NoData()
	return data, nodata, ok, nil
}
