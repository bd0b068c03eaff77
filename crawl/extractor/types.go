package extractor

import "time"

type GeoMetaData struct {
	DataSetName  string      `json:"ds_name"`
	NameSpace    string      `json:"namespace,omitempty"`
	Type         string      `json:"array_type"`
	RasterCount  int32       `json:"raster_count"`
	XSize        int32       `json:"x_size"`
	YSize        int32       `json:"y_size"`
	GeoTransform []float64   `json:"geotransform,omitempty"`
	Polygon      string      `json:"polygon,omitempty"`
	ProjWKT      string      `json:"proj_wkt,omitempty"`
	NoData       *float64    `json:"nodata,omitempty"`
	GeoLocation  *GeoLocInfo `json:"geo_loc,omitempty"`
}

// GeoLocInfo mirrors the GDAL GEOLOCATION metadata domain used to warp
// swath data with per-pixel longitude and latitude arrays.
type GeoLocInfo struct {
	XDataSetName string `json:"x_ds_name"`
	XBand        int    `json:"x_band"`
	YDataSetName string `json:"y_ds_name"`
	YBand        int    `json:"y_band"`
	LineOffset   int    `json:"line_offset"`
	PixelOffset  int    `json:"pixel_offset"`
	PixelStep    int    `json:"pixel_step"`
	LineStep     int    `json:"line_step"`
	SRS          string `json:"srs,omitempty"`
}

// Granule holds the fields encoded in a PACE file name.
type Granule struct {
	Platform   string    `json:"platform"`
	Instrument string    `json:"instrument"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end,omitempty"`
	Level      string    `json:"level"`
	Product    string    `json:"product"`
}

type GeoFile struct {
	FileName string         `json:"filename,omitempty"`
	Level    string         `json:"level"`
	Granule  *Granule       `json:"granule,omitempty"`
	DataSets []*GeoMetaData `json:"geo_metadata"`
}
