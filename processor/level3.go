package processor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	log "github.com/sirupsen/logrus"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

// Level3Exporter copies the gridded variables of a Level-3 mapped
// granule into a GeoTIFF in TargetCRS.
type Level3Exporter struct {
	DropVariables []string
	TargetCRS     string
	Profile       utils.RasterProfile
}

func NewLevel3Exporter(config *utils.Config) *Level3Exporter {
	return &Level3Exporter{
		DropVariables: config.DropVariables,
		TargetCRS:     config.TargetCRS,
		Profile:       config.Profile,
	}
}

func (e *Level3Exporter) Export(src, dst string) error {
	raster, err := e.Read(src)
	if err != nil {
		return err
	}
	raster.CRS = e.TargetCRS

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &FileError{Kind: ErrWrite, Path: dst, Err: err}
	}
	if err := utils.EncodeGeoTIFF(dst, raster, e.Profile); err != nil {
		return &FileError{Kind: ErrWrite, Path: dst, Err: err}
	}
	return nil
}

// Read stacks the kept variables of src. A file without subdatasets is
// read as a plain raster.
func (e *Level3Exporter) Read(src string) (*utils.GeoRaster, error) {
	hDataset, err := godal.Open(src, godal.RasterOnly())
	if err != nil {
		return nil, &FileError{Kind: ErrOpen, Path: src, Err: err}
	}
	defer hDataset.Close()

	names := extr.SubDatasets(hDataset)
	if len(names) == 0 {
		if len(hDataset.Bands()) == 0 {
			return nil, fileErrorf(ErrRead, src, "no raster bands")
		}
		raster, err := utils.DecodeRaster(hDataset)
		if err != nil {
			return nil, &FileError{Kind: ErrRead, Path: src, Err: err}
		}
		return raster, nil
	}

	var raster *utils.GeoRaster
	for _, name := range names {
		ns := extr.VariableName(name)
		if e.dropped(ns) {
			log.Debugf("%s: dropping variable %s", src, ns)
			continue
		}

		sub, err := readSubDataset(name)
		if err != nil {
			return nil, &FileError{Kind: ErrRead, Path: src, Err: err}
		}
		for _, b := range sub.Bands {
			if len(b.NameSpace) == 0 || len(sub.Bands) == 1 {
				b.NameSpace = ns
			}
		}

		if raster == nil {
			raster = sub
			continue
		}
		if sub.Width() != raster.Width() || sub.Height() != raster.Height() {
			log.Warnf("%s: variable %s is %dx%d, expected %dx%d, skipped", src, ns, sub.Width(), sub.Height(), raster.Width(), raster.Height())
			continue
		}
		raster.Bands = append(raster.Bands, sub.Bands...)
	}
	if raster == nil || len(raster.Bands) == 0 {
		return nil, fileErrorf(ErrRead, src, "no variables left after dropping %v", e.DropVariables)
	}
	return raster, nil
}

func (e *Level3Exporter) dropped(ns string) bool {
	for _, d := range e.DropVariables {
		if d == ns {
			return true
		}
	}
	return false
}

func readSubDataset(dsName string) (*utils.GeoRaster, error) {
	hSubdataset, err := godal.Open(dsName, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("GDAL could not open dataset: %s", dsName)
	}
	defer hSubdataset.Close()
	return utils.DecodeRaster(hSubdataset)
}
