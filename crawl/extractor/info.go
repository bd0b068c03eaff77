package extractor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
)

var GDALTypes = map[godal.DataType]string{
	godal.Byte:    "Byte",
	godal.UInt16:  "UInt16",
	godal.Int16:   "Int16",
	godal.UInt32:  "UInt32",
	godal.Int32:   "Int32",
	godal.Float32: "Float32",
	godal.Float64: "Float64",
}

const (
	subDatasetDomain = "SUBDATASETS"
	geolocDomain     = "GEOLOCATION"
)

// granuleName matches PACE names such as
// PACE_OCI.20240501T181154.L2.OC_BGC.V2_0.nc and
// PACE_OCI.20240501_20240531.L3m.MO.CHL.V2_0.chlor_a.4km.nc
var granuleName = regexp.MustCompile(`^(?P<platform>[A-Za-z0-9]+)_(?P<instrument>[A-Za-z0-9]+)\.(?P<start>\d{8}(T\d{6})?)(_(?P<end>\d{8}(T\d{6})?))?\.(?P<level>L[0-9][A-Za-z]*)\.(?P<product>.+)\.(nc|tif|tiff)$`)

var timeFormats = []string{"20060102T150405", "20060102"}

func ExtractGDALInfo(path string) (*GeoFile, error) {
	hDataset, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return &GeoFile{}, fmt.Errorf("GDAL could not open dataset: %s: %v", path, err)
	}
	defer hDataset.Close()

	geoFile := &GeoFile{FileName: path, Level: Classify(path).String()}
	if granule, err := ParseGranuleName(path); err == nil {
		geoFile.Granule = granule
	}

	subDatasets := SubDatasets(hDataset)
	if len(subDatasets) == 0 {
		// There are no subdatasets
		geoFile.DataSets = append(geoFile.DataSets, describeDataset(path, hDataset))
		return geoFile, nil
	}

	for _, dsName := range subDatasets {
		dsInfo, err := getDataSetInfo(dsName)
		if err == nil {
			geoFile.DataSets = append(geoFile.DataSets, dsInfo)
		}
	}
	return geoFile, nil
}

// SubDatasets lists the SUBDATASET_n_NAME entries of a container
// dataset in order.
func SubDatasets(hDataset *godal.Dataset) []string {
	var names []string
	for i := 1; ; i++ {
		name := hDataset.Metadata(fmt.Sprintf("SUBDATASET_%d_NAME", i), godal.Domain(subDatasetDomain))
		if len(name) == 0 {
			return names
		}
		names = append(names, name)
	}
}

// SubDatasetName builds the GDAL name of a NetCDF variable, for
// instance NETCDF:"granule.nc":/geophysical_data/chlor_a
func SubDatasetName(path, variable string) string {
	return fmt.Sprintf(`NETCDF:"%s":%s`, path, variable)
}

// VariableName returns the variable a subdataset name points at with
// any group prefix removed.
func VariableName(dsName string) string {
	parts := strings.Split(dsName, ":")
	if len(parts) <= 2 {
		return ""
	}
	ns := parts[len(parts)-1]
	if idx := strings.LastIndex(ns, "/"); idx >= 0 {
		ns = ns[idx+1:]
	}
	return ns
}

func getDataSetInfo(dsName string) (*GeoMetaData, error) {
	hSubdataset, err := godal.Open(dsName, godal.RasterOnly())
	if err != nil {
		return &GeoMetaData{}, fmt.Errorf("GDAL could not open dataset: %s", dsName)
	}
	defer hSubdataset.Close()

	return describeDataset(dsName, hSubdataset), nil
}

func describeDataset(dsName string, hDataset *godal.Dataset) *GeoMetaData {
	st := hDataset.Structure()
	md := &GeoMetaData{
		DataSetName: dsName,
		NameSpace:   VariableName(dsName),
		RasterCount: int32(st.NBands),
		XSize:       int32(st.SizeX),
		YSize:       int32(st.SizeY),
		ProjWKT:     hDataset.Projection(),
		GeoLocation: GeoLocation(hDataset),
	}

	bands := hDataset.Bands()
	if len(bands) > 0 {
		md.Type = GDALTypes[bands[0].Structure().DataType]
		if nodata, ok := bands[0].NoData(); ok {
			md.NoData = &nodata
		}
	}
	if len(md.Type) == 0 {
		md.Type = "Unknown"
	}

	if geot, err := hDataset.GeoTransform(); err == nil {
		md.GeoTransform = geot[:]
		md.Polygon = getGeometryWKT(geot, st.SizeX, st.SizeY)
	}
	return md
}

// GeoLocation reads the GEOLOCATION metadata domain, nil when the
// dataset carries none.
func GeoLocation(hDataset *godal.Dataset) *GeoLocInfo {
	get := func(key string) string {
		return hDataset.Metadata(key, godal.Domain(geolocDomain))
	}
	xds, yds := get("X_DATASET"), get("Y_DATASET")
	if len(xds) == 0 || len(yds) == 0 {
		return nil
	}

	atoi := func(key string, def int) int {
		v, err := strconv.Atoi(strings.TrimSpace(get(key)))
		if err != nil {
			return def
		}
		return v
	}
	return &GeoLocInfo{
		XDataSetName: xds,
		XBand:        atoi("X_BAND", 1),
		YDataSetName: yds,
		YBand:        atoi("Y_BAND", 1),
		LineOffset:   atoi("LINE_OFFSET", 0),
		PixelOffset:  atoi("PIXEL_OFFSET", 0),
		PixelStep:    atoi("PIXEL_STEP", 1),
		LineStep:     atoi("LINE_STEP", 1),
		SRS:          get("SRS"),
	}
}

// Metadata returns the key/value pairs of the GEOLOCATION domain.
func (g *GeoLocInfo) Metadata() map[string]string {
	md := map[string]string{
		"X_DATASET":    g.XDataSetName,
		"X_BAND":       strconv.Itoa(g.XBand),
		"Y_DATASET":    g.YDataSetName,
		"Y_BAND":       strconv.Itoa(g.YBand),
		"LINE_OFFSET":  strconv.Itoa(g.LineOffset),
		"PIXEL_OFFSET": strconv.Itoa(g.PixelOffset),
		"LINE_STEP":    strconv.Itoa(g.LineStep),
		"PIXEL_STEP":   strconv.Itoa(g.PixelStep),
	}
	if len(g.SRS) > 0 {
		md["SRS"] = g.SRS
	}
	return md
}

func getGeometryWKT(geot [6]float64, xSize, ySize int) string {
	apply := func(px, py float64) (float64, float64) {
		return geot[0] + px*geot[1] + py*geot[2], geot[3] + px*geot[4] + py*geot[5]
	}
	ulX, ulY := apply(0, 0)
	lrX, lrY := apply(float64(xSize), float64(ySize))
	return fmt.Sprintf("POLYGON ((%f %f,%f %f,%f %f,%f %f,%f %f))", ulX, ulY, ulX, lrY, lrX, lrY, lrX, ulY, ulX, ulY)
}

// ParseGranuleName extracts the fields of a PACE granule file name.
func ParseGranuleName(path string) (*Granule, error) {
	_, basename := filepath.Split(path)
	if !granuleName.MatchString(basename) {
		return nil, fmt.Errorf("not a PACE granule name: %s", basename)
	}

	match := granuleName.FindStringSubmatch(basename)
	fields := make(map[string]string)
	for i, name := range granuleName.SubexpNames() {
		if i != 0 && len(name) > 0 {
			fields[name] = match[i]
		}
	}

	start, err := parseTime(fields["start"])
	if err != nil {
		return nil, err
	}
	granule := &Granule{
		Platform:   fields["platform"],
		Instrument: fields["instrument"],
		Start:      start,
		Level:      fields["level"],
		Product:    fields["product"],
	}
	if len(fields["end"]) > 0 {
		end, err := parseTime(fields["end"])
		if err != nil {
			return nil, err
		}
		granule.End = end
	}
	return granule, nil
}

func parseTime(s string) (time.Time, error) {
	for _, format := range timeFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("Could not parse time string: %s", s)
}
