package extractor

import "strings"

// Level is the product level of a granule as told by its path.
type Level int

const (
	Unrecognized Level = iota
	Level2
	Level3
)

func (l Level) String() string {
	switch l {
	case Level2:
		return "level2"
	case Level3:
		return "level3"
	default:
		return "unrecognized"
	}
}

// MarshalText lets levels key JSON maps and appear as strings.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// Classify maps every path to a level. "level2" wins when a path
// carries both markers.
func Classify(path string) Level {
	switch {
	case strings.Contains(path, "level2"):
		return Level2
	case strings.Contains(path, "level3"):
		return Level3
	default:
		return Unrecognized
	}
}
