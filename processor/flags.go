package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

// FlagSet maps the names of a bit-flag variable to their masks, as
// declared by its flag_meanings and flag_masks attributes.
type FlagSet struct {
	Meanings []string
	Masks    []int64
}

// ParseFlags reads the attribute pair of a flag variable. GDAL renders
// numeric array attributes as "{1,2,4}" so braces and commas are
// accepted. Without flag_masks the n-th meaning is bit n.
func ParseFlags(meanings, masks string) (*FlagSet, error) {
	fs := &FlagSet{Meanings: strings.Fields(meanings)}
	if len(fs.Meanings) == 0 {
		return nil, fmt.Errorf("no flag_meanings")
	}

	masks = strings.Trim(strings.TrimSpace(masks), "{}")
	fields := strings.FieldsFunc(masks, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		for i := range fs.Meanings {
			fs.Masks = append(fs.Masks, int64(1)<<uint(i))
		}
		return fs, nil
	}

	if len(fields) != len(fs.Meanings) {
		return nil, fmt.Errorf("%d flag_meanings but %d flag_masks", len(fs.Meanings), len(fields))
	}
	for _, f := range fields {
		v, err := strconv.ParseInt(f, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid flag mask %q: %v", f, err)
		}
		// a mask on bit 31 of a signed attribute reads back negative
		if v < 0 && v >= math.MinInt32 {
			v = int64(uint32(int32(v)))
		}
		fs.Masks = append(fs.Masks, v)
	}
	return fs, nil
}

func (fs *FlagSet) Mask(name string) (int64, error) {
	for i, m := range fs.Meanings {
		if m == name {
			return fs.Masks[i], nil
		}
	}
	return 0, fmt.Errorf("flag %s not in %s", name, strings.Join(fs.Meanings, " "))
}

// ApplyCloudMask sets every band pixel whose flag word has any bit of
// mask set to NaN. It returns the number of masked pixels.
func ApplyCloudMask(bands []*utils.Float32Raster, flags []int32, mask int64) (int, error) {
	nan := float32(math.NaN())
	for i, b := range bands {
		if len(b.Data) != len(flags) {
			return 0, fmt.Errorf("band %d holds %d pixels, flags hold %d", i+1, len(b.Data), len(flags))
		}
	}

	masked := 0
	for i, f := range flags {
		if int64(uint32(f))&mask == 0 {
			continue
		}
		masked++
		for _, b := range bands {
			b.Data[i] = nan
		}
	}
	return masked, nil
}
