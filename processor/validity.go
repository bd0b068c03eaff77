package processor

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

// Bucket is one distinct pixel value and the number of pixels holding it.
type Bucket struct {
	Value float64
	Count int
}

// Histogram counts the distinct values of pixels in ascending order.
// NaNs share a single bucket, placed last.
func Histogram(pixels []float64) []Bucket {
	counts := make(map[float64]int)
	nans := 0
	for _, v := range pixels {
		if math.IsNaN(v) {
			nans++
			continue
		}
		counts[v]++
	}

	hist := make([]Bucket, 0, len(counts)+1)
	for v, c := range counts {
		hist = append(hist, Bucket{Value: v, Count: c})
	}
	sort.Slice(hist, func(i, j int) bool { return hist[i].Value < hist[j].Value })
	if nans > 0 {
		hist = append(hist, Bucket{Value: math.NaN(), Count: nans})
	}
	return hist
}

// NoDataCount returns the count of the bucket equal to nodata, 0 when
// no pixel holds it. A NaN nodata matches the NaN bucket.
func NoDataCount(hist []Bucket, nodata float64) int {
	for _, b := range hist {
		if math.IsNaN(nodata) {
			if math.IsNaN(b.Value) {
				return b.Count
			}
		} else if b.Value == nodata {
			return b.Count
		}
	}
	return 0
}

// Proportion is (n-k)/n where n is the number of pixels in hist and k
// the no-data count. An empty histogram has proportion 0.
func Proportion(hist []Bucket, nodata float64) float64 {
	n := 0
	for _, b := range hist {
		n += b.Count
	}
	if n == 0 {
		return 0
	}
	k := NoDataCount(hist, nodata)
	return float64(n-k) / float64(n)
}

func ValidProportion(pixels []float64, nodata float64) float64 {
	return Proportion(Histogram(pixels), nodata)
}

// IsValid keeps a raster whose valid proportion reaches threshold.
func IsValid(proportion, threshold float64) bool {
	return proportion >= threshold
}

// Validity is the first-band census of a written raster.
type Validity struct {
	Total      int
	NoData     int
	NoDataVal  float64
	Proportion float64
	Valid      stats.Float64Data
}

// VerifyRaster reopens a written raster and measures band 1. Level-2
// rasters are tested against NaN. Level-3 rasters use their declared
// no-data value, NaN when there is none.
func VerifyRaster(path string, level extr.Level) (*Validity, error) {
	pixels, nodata, ok, err := utils.ReadBandFile(path, 1)
	if err != nil {
		return nil, err
	}
	if level == extr.Level2 || !ok {
		nodata = math.NaN()
	}

	hist := Histogram(pixels)
	v := &Validity{
		Total:      len(pixels),
		NoData:     NoDataCount(hist, nodata),
		NoDataVal:  nodata,
		Proportion: Proportion(hist, nodata),
	}
	ref := &utils.Float32Raster{NoData: nodata}
	for _, p := range pixels {
		if !math.IsNaN(p) && !ref.IsNoData(float32(p)) {
			v.Valid = append(v.Valid, p)
		}
	}
	return v, nil
}

// Summary describes the valid pixels of a kept raster.
type Summary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

func (v *Validity) Summary() (*Summary, error) {
	if len(v.Valid) == 0 {
		return nil, fmt.Errorf("no valid pixels")
	}
	s := &Summary{Count: len(v.Valid)}
	var err error
	if s.Min, err = v.Valid.Min(); err != nil {
		return nil, err
	}
	if s.Max, err = v.Valid.Max(); err != nil {
		return nil, err
	}
	if s.Mean, err = v.Valid.Mean(); err != nil {
		return nil, err
	}
	if s.Median, err = v.Valid.Median(); err != nil {
		return nil, err
	}
	return s, nil
}
