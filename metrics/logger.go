package metrics

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

type Logger interface {
	Log(info *RunInfo)
}

// StdoutLogger writes the run summary through the process logger: a
// one-line tally at INFO and the full JSON document at DEBUG.
type StdoutLogger struct{}

func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{}
}

func (l *StdoutLogger) Log(info *RunInfo) {
	log.WithFields(log.Fields{
		"run_id":       info.RunID,
		"job":          info.Job,
		"files":        info.NumFiles,
		"converted":    info.Converted,
		"kept":         info.Kept,
		"deleted":      info.Deleted,
		"unrecognized": info.Unrecognized,
		"failed":       info.Failed,
		"duration":     info.Duration,
	}).Info("Run summary")

	infoStr, err := info.ToJSON()
	if err == nil {
		log.Debug(strings.TrimSpace(infoStr))
	} else {
		log.Errorf("StdoutLogger: error: %v", err)
	}
}

// MemoryLogger keeps every summary it is given.
type MemoryLogger struct {
	Runs []*RunInfo
}

func (l *MemoryLogger) Log(info *RunInfo) {
	l.Runs = append(l.Runs, info)
}
