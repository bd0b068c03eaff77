package metrics

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	StatusConverted    = "converted"
	StatusKept         = "kept"
	StatusDeleted      = "deleted"
	StatusUnrecognized = "unrecognized"
	StatusFailed       = "failed"
)

type FileInfo struct {
	Path            string        `json:"path"`
	Output          string        `json:"output,omitempty"`
	Level           string        `json:"level"`
	Status          string        `json:"status"`
	ErrorKind       string        `json:"error_kind,omitempty"`
	Error           string        `json:"error,omitempty"`
	ValidProportion *float64      `json:"valid_proportion,omitempty"`
	Duration        time.Duration `json:"duration"`
}

type RunInfo struct {
	RunID        string         `json:"run_id"`
	Job          string         `json:"job"`
	StartTime    string         `json:"start_time"`
	Duration     time.Duration  `json:"duration"`
	SourceRoot   string         `json:"source_root"`
	OutputRoot   string         `json:"output_root"`
	Boundary     string         `json:"boundary,omitempty"`
	Threshold    *float64       `json:"threshold,omitempty"`
	NumFiles     int            `json:"num_files"`
	Converted    int            `json:"converted"`
	Kept         int            `json:"kept"`
	Deleted      int            `json:"deleted"`
	Unrecognized int            `json:"unrecognized"`
	Failed       int            `json:"failed"`
	Failures     map[string]int `json:"failures,omitempty"`
	Files        []*FileInfo    `json:"files,omitempty"`
}

type MetricsCollector struct {
	Info   *RunInfo
	start  time.Time
	logger Logger
}

func NewMetricsCollector(job string, logger Logger) *MetricsCollector {
	start := time.Now()
	return &MetricsCollector{
		Info: &RunInfo{
			RunID:     uuid.New().String(),
			Job:       job,
			StartTime: start.UTC().Format(time.RFC3339),
			Failures:  make(map[string]int),
		},
		start:  start,
		logger: logger,
	}
}

// Add tallies one file outcome.
func (m *MetricsCollector) Add(file *FileInfo) {
	info := m.Info
	info.NumFiles++
	switch file.Status {
	case StatusConverted:
		info.Converted++
	case StatusKept:
		info.Kept++
	case StatusDeleted:
		info.Deleted++
	case StatusUnrecognized:
		info.Unrecognized++
	case StatusFailed:
		info.Failed++
		info.Failures[file.ErrorKind]++
	}
	info.Files = append(info.Files, file)
}

func (m *MetricsCollector) Log() {
	m.Info.Duration = time.Since(m.start)
	if m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *RunInfo) ToJSON() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err == nil {
		return buf.String(), nil
	} else {
		return "", err
	}
}
