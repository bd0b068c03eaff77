package utils

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// InitLogger sends timestamped text lines to stdout at the given level.
func InitLogger(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %v", level, err)
	}

	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   true,
	})
	log.SetLevel(lvl)
	return nil
}
