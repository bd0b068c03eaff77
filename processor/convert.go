package processor

import (
	"time"

	log "github.com/sirupsen/logrus"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/metrics"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

// Exporter writes the GeoTIFF rendition of one source granule.
type Exporter interface {
	Export(src, dst string) error
}

// ConvertJob mirrors every granule under SourceRoot into a GeoTIFF
// under OutputRoot.
type ConvertJob struct {
	Config    utils.Config
	Exporters map[extr.Level]Exporter
	Collector *metrics.MetricsCollector
}

func NewConvertJob(config *utils.Config, logger metrics.Logger) *ConvertJob {
	collector := metrics.NewMetricsCollector("convert", logger)
	collector.Info.SourceRoot = config.SourceRoot
	collector.Info.OutputRoot = config.OutputRoot
	return &ConvertJob{
		Config: *config,
		Exporters: map[extr.Level]Exporter{
			extr.Level2: NewLevel2Exporter(config),
			extr.Level3: NewLevel3Exporter(config),
		},
		Collector: collector,
	}
}

func (j *ConvertJob) Run() (*metrics.RunInfo, error) {
	paths, err := discover(j.Config.CrawlRoot(), j.Config.Pattern)
	if err != nil {
		return j.Collector.Info, err
	}

	for _, path := range paths {
		res := j.ConvertFile(path)
		logResult(res)
		j.Collector.Add(res.FileInfo())
	}
	j.Collector.Log()
	return j.Collector.Info, nil
}

// ConvertFile dispatches one file on its processing level. Files of no
// known level produce no output.
func (j *ConvertJob) ConvertFile(path string) *Result {
	t0 := time.Now()
	res := &Result{Source: path, Level: extr.Classify(path)}
	defer func() { res.Duration = time.Since(t0) }()

	exporter, ok := j.Exporters[res.Level]
	if !ok {
		res.Status = metrics.StatusUnrecognized
		return res
	}

	out, err := MirrorPath(path, j.Config.SourceRoot, j.Config.OutputRoot)
	if err != nil {
		return failed(res, &FileError{Kind: ErrPath, Path: path, Err: err})
	}
	log.Infof("Processing file: %s", path)

	if err := exporter.Export(path, out); err != nil {
		return failed(res, err)
	}
	res.Output = out
	res.Status = metrics.StatusConverted
	return res
}

func discover(root, pattern string) ([]string, error) {
	paths, err := extr.ExtractPosix(root, pattern)
	if err != nil {
		if len(paths) == 0 {
			return nil, err
		}
		log.Errorf("Errors while crawling %s: %v", root, err)
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	log.Infof("Found %d files under %s", len(paths), root)
	return paths, nil
}

func logResult(res *Result) {
	switch res.Status {
	case metrics.StatusUnrecognized:
		log.Warnf("Unrecognized processing level, skipping: %s", res.Source)
	case metrics.StatusFailed:
		log.WithField("kind", KindOf(res.Err)).Errorf("Skip to next file, cannot process raster for %s: %v", res.Source, res.Err)
	case metrics.StatusDeleted:
		log.Infof("Deleted %s, %.4f of pixels valid", res.Output, *res.ValidProportion)
	default:
		log.Infof("Wrote %s", res.Output)
	}
}
