package processor

import (
	"fmt"
	"path/filepath"
	"strings"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
)

const GlobalSegment = "global"

// WithTifSuffix replaces the extension of path with .tif.
func WithTifSuffix(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".tif"
}

func relativeTo(path, root string) ([]string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%s is not under %s", path, root)
	}
	return strings.Split(rel, string(filepath.Separator)), nil
}

// MirrorPath swaps the srcRoot prefix of path for dstRoot and gives the
// result a .tif suffix.
func MirrorPath(path, srcRoot, dstRoot string) (string, error) {
	segments, err := relativeTo(path, srcRoot)
	if err != nil {
		return "", err
	}
	return WithTifSuffix(filepath.Join(append([]string{dstRoot}, segments...)...)), nil
}

// CropOutputPath mirrors path under dstRoot. Level-3 outputs also get the
// boundary name as a directory right after the "global" segment, so
// crops of the same global product by different regions do not collide.
func CropOutputPath(path, srcRoot, dstRoot string, level extr.Level, boundaryName string) (string, error) {
	if level != extr.Level3 {
		return MirrorPath(path, srcRoot, dstRoot)
	}

	segments, err := relativeTo(path, srcRoot)
	if err != nil {
		return "", err
	}

	// the last segment is the file name
	idx := -1
	for i, seg := range segments[:len(segments)-1] {
		if seg == GlobalSegment {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("level-3 path has no %q directory: %s", GlobalSegment, path)
	}

	out := []string{dstRoot}
	out = append(out, segments[:idx+1]...)
	out = append(out, boundaryName)
	out = append(out, segments[idx+1:]...)
	return WithTifSuffix(filepath.Join(out...)), nil
}
