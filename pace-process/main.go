package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	err := createCliApp().Run(os.Args)
	if err != nil {
		log.Errorf("Error executing pace-process: %v", err)
		os.Exit(1)
	}
}
