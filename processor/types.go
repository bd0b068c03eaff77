package processor

import (
	"errors"
	"fmt"
	"time"

	extr "github.com/stephieliu/NASA-PACE-Initial-Data-Processing/crawl/extractor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/metrics"
)

// ErrorKind classifies why a file was skipped.
type ErrorKind string

const (
	ErrOpen      ErrorKind = "open"
	ErrRead      ErrorKind = "read"
	ErrMask      ErrorKind = "mask"
	ErrReproject ErrorKind = "reproject"
	ErrClip      ErrorKind = "clip"
	ErrWrite     ErrorKind = "write"
	ErrVerify    ErrorKind = "verify"
	ErrPath      ErrorKind = "path"
	ErrCRS       ErrorKind = "crs"
)

var ErrNoFiles = errors.New("No files found")

// FileError is the failure of one file. The batch carries on after it.
type FileError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func fileErrorf(kind ErrorKind, path string, format string, args ...interface{}) *FileError {
	return &FileError{Kind: kind, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of a *FileError anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Result is the outcome of one file: an output path on success, an
// error otherwise.
type Result struct {
	Source          string
	Output          string
	Level           extr.Level
	Status          string
	ValidProportion *float64
	Err             error
	Duration        time.Duration
}

func (r *Result) OK() bool {
	return r.Err == nil && r.Status != metrics.StatusFailed
}

func (r *Result) FileInfo() *metrics.FileInfo {
	info := &metrics.FileInfo{
		Path:            r.Source,
		Output:          r.Output,
		Level:           r.Level.String(),
		Status:          r.Status,
		ValidProportion: r.ValidProportion,
		Duration:        r.Duration,
	}
	if r.Err != nil {
		info.ErrorKind = string(KindOf(r.Err))
		info.Error = r.Err.Error()
	}
	return info
}

func failed(res *Result, err error) *Result {
	res.Status = metrics.StatusFailed
	res.Err = err
	return res
}
