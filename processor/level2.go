package processor

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	log "github.com/sirupsen/logrus"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

const (
	GeophysicalGroup = "/geophysical_data/"
	NavigationGroup  = "/navigation_data/"
	FlagVariable     = "l2_flags"

	geolocDomain = "GEOLOCATION"
)

// Level2Exporter turns a Level-2 swath granule into a gridded GeoTIFF
// with one band per exported variable. With no Variables every variable
// of the geophysical group is exported, Target first.
type Level2Exporter struct {
	Variables []string
	Target    string
	KeepFlags bool
	CloudFlag string
	TargetCRS string
	Profile   utils.RasterProfile
}

func NewLevel2Exporter(config *utils.Config) *Level2Exporter {
	return &Level2Exporter{
		Variables: config.Variables(),
		Target:    config.Variable,
		KeepFlags: config.KeepFlags,
		CloudFlag: config.CloudFlag,
		TargetCRS: config.TargetCRS,
		Profile:   config.Profile,
	}
}

func (e *Level2Exporter) Export(src, dst string) error {
	variables := e.Variables
	if len(variables) == 0 {
		var err error
		variables, err = GeophysicalVariables(src, e.Target, e.KeepFlags)
		if err != nil {
			return &FileError{Kind: ErrRead, Path: src, Err: err}
		}
	}

	swath, err := ReadSwath(src, variables)
	if err != nil {
		return &FileError{Kind: ErrRead, Path: src, Err: err}
	}

	flags, fs, err := ReadFlags(src)
	if err != nil {
		return &FileError{Kind: ErrMask, Path: src, Err: err}
	}
	if err := e.mask(swath, flags, fs); err != nil {
		return &FileError{Kind: ErrMask, Path: src, Err: err}
	}

	geoloc, err := SwathGeoLocation(src)
	if err != nil {
		return &FileError{Kind: ErrCRS, Path: src, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &FileError{Kind: ErrWrite, Path: dst, Err: err}
	}
	return e.Warp(swath, geoloc, dst)
}

// mask blanks the cloud flagged pixels of swath. A nil FlagSet leaves
// swath untouched.
func (e *Level2Exporter) mask(swath []*utils.Float32Raster, flags []int32, fs *FlagSet) error {
	if fs == nil {
		log.Debugf("No flag_meanings on %s, cloud mask skipped", FlagVariable)
		return nil
	}
	bit, err := fs.Mask(e.CloudFlag)
	if err != nil {
		return err
	}
	n, err := ApplyCloudMask(swath, flags, bit)
	if err != nil {
		return err
	}
	log.Debugf("%d pixels flagged %s", n, e.CloudFlag)
	return nil
}

// Warp grids the swath bands onto TargetCRS through the geolocation
// arrays and writes the result to dst.
func (e *Level2Exporter) Warp(swath []*utils.Float32Raster, geoloc *extr.GeoLocInfo, dst string) error {
	width, height, err := utils.ValidateRasterSlice(swath)
	if err != nil {
		return &FileError{Kind: ErrRead, Path: dst, Err: err}
	}

	hSrcDS, err := godal.Create(godal.Memory, "", len(swath), godal.Float32, width, height)
	if err != nil {
		return &FileError{Kind: ErrReproject, Path: dst, Err: err}
	}
	defer hSrcDS.Close()

	for i, band := range hSrcDS.Bands() {
		if err := band.SetNoData(math.NaN()); err != nil {
			return &FileError{Kind: ErrReproject, Path: dst, Err: err}
		}
		if err := band.Write(0, 0, swath[i].Data, width, height); err != nil {
			return &FileError{Kind: ErrReproject, Path: dst, Err: err}
		}
	}
	for k, v := range geoloc.Metadata() {
		if err := hSrcDS.SetMetadata(k, v, godal.Domain(geolocDomain)); err != nil {
			return &FileError{Kind: ErrReproject, Path: dst, Err: err}
		}
	}

	hDstDS, err := hSrcDS.Warp(dst, e.warpSwitches())
	if err != nil {
		os.Remove(dst)
		return &FileError{Kind: ErrReproject, Path: dst, Err: err}
	}

	// GeoTIFF has no axis names, the band descriptions carry the variables
	for i, band := range hDstDS.Bands() {
		if i < len(swath) && len(swath[i].NameSpace) > 0 {
			if err := band.SetDescription(swath[i].NameSpace); err != nil {
				hDstDS.Close()
				os.Remove(dst)
				return &FileError{Kind: ErrWrite, Path: dst, Err: err}
			}
		}
	}
	if err := hDstDS.Close(); err != nil {
		os.Remove(dst)
		return &FileError{Kind: ErrWrite, Path: dst, Err: err}
	}
	return nil
}

func (e *Level2Exporter) warpSwitches() []string {
	switches := []string{
		"-of", "GTiff",
		"-geoloc",
		"-t_srs", e.TargetCRS,
		"-r", "near",
		"-srcnodata", "nan",
		"-dstnodata", "nan",
		"-ot", "Float32",
	}
	return append(switches, e.Profile.WarpSwitches()...)
}

// GeophysicalVariables lists the variables of the geophysical group of
// a granule, target first. The flag variable is left out unless
// keepFlags is set.
func GeophysicalVariables(path, target string, keepFlags bool) ([]string, error) {
	hDataset, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, err
	}
	defer hDataset.Close()

	return selectVariables(extr.SubDatasets(hDataset), GeophysicalGroup, target, keepFlags)
}

// selectVariables keeps the subdatasets that sit directly in group.
func selectVariables(names []string, group, target string, keepFlags bool) ([]string, error) {
	var vars []string
	for _, name := range names {
		v := name[strings.LastIndex(name, ":")+1:]
		if !strings.HasPrefix(v, group) {
			continue
		}
		v = strings.TrimPrefix(v, group)
		if len(v) == 0 || strings.Contains(v, "/") {
			continue
		}
		if v == FlagVariable && !keepFlags {
			continue
		}
		if v == target {
			vars = append([]string{v}, vars...)
			continue
		}
		vars = append(vars, v)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("no variables in %s", group)
	}
	return vars, nil
}

// ReadSwath reads the geophysical variables of a Level-2 granule with
// scale and offset applied and fill values turned into NaN.
func ReadSwath(path string, variables []string) ([]*utils.Float32Raster, error) {
	var swath []*utils.Float32Raster
	for _, v := range variables {
		br, err := readVariable(extr.SubDatasetName(path, GeophysicalGroup+v))
		if err != nil {
			return nil, fmt.Errorf("variable %s: %v", v, err)
		}
		br.NameSpace = v
		swath = append(swath, br)
	}
	return swath, nil
}

func readVariable(dsName string) (*utils.Float32Raster, error) {
	hDataset, err := godal.Open(dsName, godal.RasterOnly())
	if err != nil {
		return nil, err
	}
	defer hDataset.Close()

	bands := hDataset.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("%s has no raster band", dsName)
	}
	band := bands[0]
	br, err := utils.DecodeBand(band)
	if err != nil {
		return nil, err
	}

	scale := metadataFloat(band, "scale_factor", 1)
	offset := metadataFloat(band, "add_offset", 0)
	nan := float32(math.NaN())
	for i, v := range br.Data {
		if br.IsNoData(v) {
			br.Data[i] = nan
			continue
		}
		if scale != 1 || offset != 0 {
			br.Data[i] = float32(float64(v)*scale + offset)
		}
	}
	br.NoData = math.NaN()
	return br, nil
}

func metadataFloat(band godal.Band, key string, def float64) float64 {
	s := strings.TrimSpace(band.Metadata(key))
	if len(s) == 0 {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// ReadFlags reads the l2_flags words of a granule. The FlagSet is nil
// when the variable declares no flag_meanings.
func ReadFlags(path string) ([]int32, *FlagSet, error) {
	flags, fs, err := readFlagVariable(extr.SubDatasetName(path, GeophysicalGroup+FlagVariable))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %v", FlagVariable, err)
	}
	return flags, fs, nil
}

func readFlagVariable(dsName string) ([]int32, *FlagSet, error) {
	hDataset, err := godal.Open(dsName, godal.RasterOnly())
	if err != nil {
		return nil, nil, err
	}
	defer hDataset.Close()

	bands := hDataset.Bands()
	if len(bands) == 0 {
		return nil, nil, fmt.Errorf("%s has no raster band", dsName)
	}
	band := bands[0]
	meanings := band.Metadata("flag_meanings")
	if len(meanings) == 0 {
		return nil, nil, nil
	}
	fs, err := ParseFlags(meanings, band.Metadata("flag_masks"))
	if err != nil {
		return nil, nil, err
	}

	st := band.Structure()
	flags := make([]int32, st.SizeX*st.SizeY)
	if err := band.Read(0, 0, flags, st.SizeX, st.SizeY); err != nil {
		return nil, nil, err
	}
	return flags, fs, nil
}

// SwathGeoLocation points GDAL at the longitude and latitude arrays of a
// Level-2 granule.
func SwathGeoLocation(path string) (*extr.GeoLocInfo, error) {
	srs, err := wgs84WKT()
	if err != nil {
		return nil, err
	}
	return &extr.GeoLocInfo{
		XDataSetName: extr.SubDatasetName(path, NavigationGroup+"longitude"),
		XBand:        1,
		YDataSetName: extr.SubDatasetName(path, NavigationGroup+"latitude"),
		YBand:        1,
		PixelStep:    1,
		LineStep:     1,
		SRS:          srs,
	}, nil
}

func wgs84WKT() (string, error) {
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return "", err
	}
	defer sr.Close()
	return sr.WKT()
}
