package processor

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

// Window is a pixel rectangle of a raster.
type Window struct {
	XOff, YOff   int
	XSize, YSize int
}

// BoundaryWindow is the smallest pixel window covering bound, limited
// to the raster extent.
func BoundaryWindow(bound orb.Bound, geot [6]float64, width, height int) (Window, error) {
	if geot[2] != 0 || geot[4] != 0 {
		return Window{}, fmt.Errorf("rotated rasters are not supported")
	}
	if geot[1] == 0 || geot[5] == 0 {
		return Window{}, fmt.Errorf("degenerate geotransform %v", geot)
	}

	c0 := (bound.Min[0] - geot[0]) / geot[1]
	c1 := (bound.Max[0] - geot[0]) / geot[1]
	r0 := (bound.Max[1] - geot[3]) / geot[5]
	r1 := (bound.Min[1] - geot[3]) / geot[5]

	colMin := clampIndex(math.Floor(math.Min(c0, c1)), width)
	colMax := clampIndex(math.Ceil(math.Max(c0, c1)), width)
	rowMin := clampIndex(math.Floor(math.Min(r0, r1)), height)
	rowMax := clampIndex(math.Ceil(math.Max(r0, r1)), height)

	if colMax <= colMin || rowMax <= rowMin {
		return Window{}, fmt.Errorf("boundary does not overlap raster")
	}
	return Window{XOff: colMin, YOff: rowMin, XSize: colMax - colMin, YSize: rowMax - rowMin}, nil
}

// clampIndex limits v to [0, hi] before the int conversion, infinite
// bounds included. NaN gives 0.
func clampIndex(v float64, hi int) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= float64(hi) {
		return hi
	}
	return int(v)
}

// ClipMask reports for each pixel of win whether its centre falls inside
// mp, row by row.
func ClipMask(mp orb.MultiPolygon, geot [6]float64, win Window) []bool {
	bounds := make([]orb.Bound, len(mp))
	for i, p := range mp {
		bounds[i] = p.Bound()
	}

	mask := make([]bool, win.XSize*win.YSize)
	for row := 0; row < win.YSize; row++ {
		cy := geot[3] + (float64(win.YOff+row)+0.5)*geot[5]
		for col := 0; col < win.XSize; col++ {
			cx := geot[0] + (float64(win.XOff+col)+0.5)*geot[1]
			pt := orb.Point{cx, cy}
			for i, p := range mp {
				if bounds[i].Contains(pt) && planar.PolygonContains(p, pt) {
					mask[row*win.XSize+col] = true
					break
				}
			}
		}
	}
	return mask
}

// ClipRaster reads the window of ds covered by mp. Pixels outside mp and
// source no-data pixels become NaN, which is also the output no-data.
func ClipRaster(hDataset *godal.Dataset, mp orb.MultiPolygon) (*utils.GeoRaster, error) {
	if len(mp) == 0 {
		return nil, fmt.Errorf("empty boundary")
	}
	geot, err := hDataset.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("Dataset has no geotransform: %v", err)
	}
	st := hDataset.Structure()
	win, err := BoundaryWindow(mp.Bound(), geot, st.SizeX, st.SizeY)
	if err != nil {
		return nil, err
	}
	mask := ClipMask(mp, geot, win)

	out := &utils.GeoRaster{
		GeoTransform: [6]float64{
			geot[0] + float64(win.XOff)*geot[1], geot[1], 0,
			geot[3] + float64(win.YOff)*geot[5], 0, geot[5],
		},
	}
	nan := float32(math.NaN())
	for i, band := range hDataset.Bands() {
		nodata, ok := band.NoData()
		if !ok {
			nodata = math.NaN()
		}
		br := &utils.Float32Raster{
			NameSpace: band.Description(),
			Data:      make([]float32, win.XSize*win.YSize),
			Width:     win.XSize,
			Height:    win.YSize,
			NoData:    nodata,
		}
		if err := band.Read(win.XOff, win.YOff, br.Data, win.XSize, win.YSize); err != nil {
			return nil, fmt.Errorf("Error reading band %d: %v", i+1, err)
		}
		for j, v := range br.Data {
			if !mask[j] || br.IsNoData(v) {
				br.Data[j] = nan
			}
		}
		br.NoData = math.NaN()
		out.Bands = append(out.Bands, br)
	}
	return out, nil
}
