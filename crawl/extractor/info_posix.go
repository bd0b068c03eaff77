package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goeval "github.com/edisonguo/govaluate"
)

const DefaultMaxPosixErrors = 1000

// PosixCrawler walks a directory tree one entry at a time and collects
// the regular files accepted by its pattern expression. The expression
// sees two variables: path, and type ("f" for files, "d" for
// directories). A directory for which it evaluates false is pruned.
type PosixCrawler struct {
	pattern *goeval.EvaluableExpression
	errors  []string
}

func NewPosixCrawler(pattern string) (*PosixCrawler, error) {
	expr, err := parsePatternExpression(pattern)
	if err != nil {
		return nil, err
	}
	return &PosixCrawler{pattern: expr}, nil
}

// Crawl returns the accepted files under rootDir, de-duplicated and
// sorted. Unreadable entries are skipped and reported together in the
// returned error alongside whatever was found.
func (pc *PosixCrawler) Crawl(rootDir string) ([]string, error) {
	root := filepath.Clean(rootDir)
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("Could not open dir: %v", err)
	}

	seen := make(map[string]struct{})
	var paths []string
	filepath.Walk(root, func(filePath string, fi os.FileInfo, err error) error {
		if err != nil {
			pc.addError(err)
			if fi != nil && fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		mode := fi.Mode()
		if !mode.IsDir() && !mode.IsRegular() {
			return nil
		}

		if pc.pattern != nil && filePath != root {
			ok, err := pc.evaluatePatternExpression(filePath, mode.IsDir())
			if err != nil {
				pc.addError(err)
				return nil
			}
			if !ok {
				if mode.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if mode.IsRegular() {
			if _, found := seen[filePath]; !found {
				seen[filePath] = struct{}{}
				paths = append(paths, filePath)
			}
		}
		return nil
	})

	sort.Strings(paths)

	if len(pc.errors) > 0 {
		errs := pc.errors
		pc.errors = nil
		return paths, errors.New(strings.Join(errs, "\n"))
	}
	return paths, nil
}

func (pc *PosixCrawler) addError(err error) {
	switch {
	case len(pc.errors) < DefaultMaxPosixErrors:
		pc.errors = append(pc.errors, err.Error())
	case len(pc.errors) == DefaultMaxPosixErrors:
		pc.errors = append(pc.errors, " ... too many errors")
	}
}

// ExtractPosix lists the files under rootDir accepted by pattern.
func ExtractPosix(rootDir string, pattern string) ([]string, error) {
	crawler, err := NewPosixCrawler(pattern)
	if err != nil {
		return nil, err
	}
	return crawler.Crawl(rootDir)
}

func parsePatternExpression(pattern string) (*goeval.EvaluableExpression, error) {
	if len(strings.TrimSpace(pattern)) == 0 {
		return nil, nil
	}

	expr, err := goeval.NewEvaluableExpression(pattern)
	if err != nil {
		return nil, err
	}

	validVariables := map[string]struct{}{"path": struct{}{}, "type": struct{}{}}
	for _, token := range expr.Tokens() {
		if token.Kind == goeval.VARIABLE {
			varName, ok := token.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' failed to cast string", token.Value)
			}
			if _, found := validVariables[varName]; !found {
				return nil, fmt.Errorf("variable %v is not supported. Valid variables are %v", varName, validVariables)
			}
		}
	}
	return expr, nil
}

func (pc *PosixCrawler) evaluatePatternExpression(filePath string, isDir bool) (bool, error) {
	fileType := "f"
	if isDir {
		fileType = "d"
	}

	parameters := map[string]interface{}{"type": fileType, "path": filePath}
	result, err := pc.pattern.Evaluate(parameters)
	if err != nil {
		return false, fmt.Errorf("pattern expression: %v", err)
	}

	val, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("pattern expression: result '%v' is not boolean", result)
	}
	return val, nil
}
