package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/metrics"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/processor"
	"github.com/stephieliu/NASA-PACE-Initial-Data-Processing/utils"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "YAML configuration `FILE`",
	},
	cli.StringFlag{
		Name:  "log-level",
		Value: "debug",
		Usage: "one of debug, info, warn, error",
	},
}

var patternFlag = cli.StringFlag{
	Name:  "pattern",
	Usage: "govaluate expression over path and type selecting files",
}

var jobFlags = []cli.Flag{
	cli.StringFlag{Name: "source-root", Usage: "directory the output paths are relative to"},
	cli.StringFlag{Name: "walk-root", Usage: "directory under source-root to walk instead of all of it"},
	cli.StringFlag{Name: "output-root", Usage: "directory the outputs mirror into"},
	patternFlag,
}

var convertFlags = append([]cli.Flag{
	cli.StringFlag{Name: "target-crs", Usage: "CRS of the converted rasters"},
}, jobFlags...)

var cropFlags = append([]cli.Flag{
	cli.StringFlag{Name: "boundary", Usage: "GeoJSON boundary polygon"},
	cli.Float64Flag{Name: "threshold", Usage: "minimum valid pixel proportion of a kept crop"},
	cli.StringFlag{Name: "output-crs", Usage: "CRS assigned to the cropped rasters"},
}, jobFlags...)

var commands = cli.Commands{
	cli.Command{
		Name:    "convert",
		Aliases: []string{"cv"},
		Usage:   "Convert Level-2 and Level-3 granules into GeoTIFFs",
		Flags:   convertFlags,
		Action:  convertAction,
	},
	cli.Command{
		Name:    "crop",
		Aliases: []string{"cr"},
		Usage:   "Crop converted rasters to a boundary and drop mostly empty crops",
		Flags:   cropFlags,
		Action:  cropAction,
	},
	cli.Command{
		Name:      "info",
		Aliases:   []string{"i"},
		Usage:     "Print the GDAL description and file attributes of granules",
		ArgsUsage: "<granule | directory | ->",
		Flags:     []cli.Flag{patternFlag},
		Action:    infoAction,
	},
}

func createCliApp() (app *cli.App) {
	app = cli.NewApp()
	app.Name = "pace-process"
	app.Usage = "Convert and crop PACE ocean colour granules"
	app.Flags = globalFlags
	app.Commands = commands
	app.Before = func(c *cli.Context) error {
		if err := utils.InitLogger(c.GlobalString("log-level")); err != nil {
			return err
		}
		utils.InitGdal()
		return nil
	}
	return
}

// loadConfig reads the config file and lays the command line overrides
// on top of it.
func loadConfig(c *cli.Context, requireBoundary bool) (*utils.Config, error) {
	config, err := utils.LoadConfigFile(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"source-root": &config.SourceRoot,
		"walk-root":   &config.WalkRoot,
		"output-root": &config.OutputRoot,
		"target-crs":  &config.TargetCRS,
		"output-crs":  &config.OutputCRS,
		"pattern":     &config.Pattern,
		"boundary":    &config.BoundaryPath,
	}
	for name, field := range overrides {
		if c.IsSet(name) {
			*field = c.String(name)
		}
	}
	if c.IsSet("threshold") {
		config.Threshold = c.Float64("threshold")
	}

	if err := config.Validate(requireBoundary); err != nil {
		return nil, fmt.Errorf("Invalid configuration: %v", err)
	}
	return config, nil
}

func convertAction(c *cli.Context) error {
	config, err := loadConfig(c, false)
	if err != nil {
		return err
	}

	log.Infof("Converting %s into %s", config.CrawlRoot(), config.OutputRoot)
	_, err = processor.NewConvertJob(config, metrics.NewStdoutLogger()).Run()
	return err
}

func cropAction(c *cli.Context) error {
	config, err := loadConfig(c, true)
	if err != nil {
		return err
	}

	job, err := processor.NewCropJob(config, metrics.NewStdoutLogger())
	if err != nil {
		return err
	}
	log.Infof("Cropping %s into %s by %s, threshold %v, output CRS %s", config.CrawlRoot(), config.OutputRoot, job.Boundary.Name, config.Threshold, config.OutputCRS)
	_, err = job.Run()
	return err
}

func infoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("Please provide a path to a file or '-' for reading from stdin")
	}

	path := c.Args().First()
	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Scan()
		path = strings.TrimSpace(scanner.Text())
	}

	return processor.NewInfoPrinter(c.App.Writer, c.String("pattern")).Process(path)
}
