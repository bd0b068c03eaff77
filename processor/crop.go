package processor

import (
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/godal"
	log "github.com/sirupsen/logrus"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/metrics"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

// CropJob clips every raster under SourceRoot to a boundary and keeps
// the crops whose valid proportion reaches Threshold.
type CropJob struct {
	Config    utils.Config
	Boundary  *Boundary
	Collector *metrics.MetricsCollector
}

func NewCropJob(config *utils.Config, logger metrics.Logger) (*CropJob, error) {
	boundary, err := LoadBoundary(config.BoundaryPath)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded boundary %s: %d polygons in %s, area %.6f", boundary.Name, len(boundary.Geometries), boundary.CRS, boundary.Area())

	collector := metrics.NewMetricsCollector("crop", logger)
	collector.Info.SourceRoot = config.SourceRoot
	collector.Info.OutputRoot = config.OutputRoot
	collector.Info.Boundary = config.BoundaryPath
	threshold := config.Threshold
	collector.Info.Threshold = &threshold

	return &CropJob{Config: *config, Boundary: boundary, Collector: collector}, nil
}

func (j *CropJob) Run() (*metrics.RunInfo, error) {
	paths, err := discover(j.Config.CrawlRoot(), j.Config.Pattern)
	if err != nil {
		return j.Collector.Info, err
	}

	for _, path := range paths {
		res := j.CropFile(path)
		logResult(res)
		j.Collector.Add(res.FileInfo())
	}
	j.Collector.Log()
	return j.Collector.Info, nil
}

func (j *CropJob) CropFile(path string) *Result {
	t0 := time.Now()
	res := &Result{Source: path, Level: extr.Classify(path)}
	defer func() { res.Duration = time.Since(t0) }()

	out, err := CropOutputPath(path, j.Config.SourceRoot, j.Config.OutputRoot, res.Level, j.Boundary.Name)
	if err != nil {
		return failed(res, &FileError{Kind: ErrPath, Path: path, Err: err})
	}
	log.Infof("Processing file: %s", path)

	raster, err := j.clip(path)
	if err != nil {
		return failed(res, err)
	}
	raster.CRS = j.Config.OutputCRS

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return failed(res, &FileError{Kind: ErrWrite, Path: out, Err: err})
	}
	if err := utils.EncodeGeoTIFF(out, raster, j.Config.Profile); err != nil {
		return failed(res, &FileError{Kind: ErrWrite, Path: out, Err: err})
	}
	res.Output = out

	validity, err := VerifyRaster(out, res.Level)
	if err != nil {
		return failed(res, &FileError{Kind: ErrVerify, Path: out, Err: err})
	}
	prop := validity.Proportion
	res.ValidProportion = &prop
	log.Debugf("%s: %d of %d pixels are no-data", out, validity.NoData, validity.Total)

	if !IsValid(prop, j.Config.Threshold) {
		if err := os.Remove(out); err != nil {
			return failed(res, &FileError{Kind: ErrWrite, Path: out, Err: err})
		}
		res.Status = metrics.StatusDeleted
		return res
	}

	if summary, err := validity.Summary(); err == nil {
		log.WithFields(log.Fields{
			"valid":  summary.Count,
			"min":    summary.Min,
			"max":    summary.Max,
			"mean":   summary.Mean,
			"median": summary.Median,
		}).Infof("Kept %s, %.4f of pixels valid", out, prop)
	}
	res.Status = metrics.StatusKept
	return res
}

func (j *CropJob) clip(path string) (*utils.GeoRaster, error) {
	hDataset, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, &FileError{Kind: ErrOpen, Path: path, Err: err}
	}
	defer hDataset.Close()

	if len(hDataset.Projection()) == 0 {
		return nil, fileErrorf(ErrCRS, path, "raster has no CRS")
	}
	sr := hDataset.SpatialRef()
	defer sr.Close()

	mp, err := j.Boundary.Project(sr)
	if err != nil {
		return nil, &FileError{Kind: ErrReproject, Path: path, Err: err}
	}
	raster, err := ClipRaster(hDataset, mp)
	if err != nil {
		return nil, &FileError{Kind: ErrClip, Path: path, Err: err}
	}
	return raster, nil
}
