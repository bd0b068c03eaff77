package utils

import (
	"fmt"
	"io/ioutil"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	DefaultThreshold  = 0.1
	DefaultCRS        = "EPSG:4326"
	DefaultVariable   = "chlor_a"
	DefaultCloudFlag  = "CLDICE"
	DefaultBlockSize  = 512
	DefaultCompress   = "LZW"
	DefaultInterleave = "BAND"
)

// RasterProfile holds the GeoTIFF creation parameters shared by the
// exporters and the crop job.
type RasterProfile struct {
	BlockXSize int    `yaml:"block_x_size"`
	BlockYSize int    `yaml:"block_y_size"`
	Compress   string `yaml:"compress"`
	Interleave string `yaml:"interleave"`
}

// CreationOptions returns the profile as GTiff driver options.
func (p RasterProfile) CreationOptions() []string {
	return []string{
		"TILED=YES",
		fmt.Sprintf("BLOCKXSIZE=%d", p.BlockXSize),
		fmt.Sprintf("BLOCKYSIZE=%d", p.BlockYSize),
		fmt.Sprintf("COMPRESS=%s", p.Compress),
		fmt.Sprintf("INTERLEAVE=%s", p.Interleave),
	}
}

// WarpSwitches returns the profile as gdalwarp -co switches.
func (p RasterProfile) WarpSwitches() []string {
	var switches []string
	for _, opt := range p.CreationOptions() {
		switches = append(switches, "-co", opt)
	}
	return switches
}

// Config is the configuration of a conversion or crop run. It is
// loaded once at start up and passed by value to the jobs.
type Config struct {
	SourceRoot     string        `yaml:"source_root"`
	WalkRoot       string        `yaml:"walk_root"`
	OutputRoot     string        `yaml:"output_root"`
	BoundaryPath   string        `yaml:"boundary_path"`
	Threshold      float64       `yaml:"threshold"`
	TargetCRS      string        `yaml:"target_crs"`
	OutputCRS      string        `yaml:"output_crs"`
	Variable       string        `yaml:"variable"`
	ExtraVariables []string      `yaml:"extra_variables"`
	KeepFlags      bool          `yaml:"keep_flags"`
	CloudFlag      string        `yaml:"cloud_flag"`
	DropVariables  []string      `yaml:"drop_variables"`
	Pattern        string        `yaml:"pattern"`
	Profile        RasterProfile `yaml:"profile"`
}

// NewConfig returns a configuration with every default applied.
func NewConfig() *Config {
	config := &Config{Threshold: math.NaN()}
	config.applyDefaults()
	return config
}

func (config *Config) applyDefaults() {
	if math.IsNaN(config.Threshold) {
		config.Threshold = DefaultThreshold
	}
	if len(config.TargetCRS) == 0 {
		config.TargetCRS = DefaultCRS
	}
	if len(config.OutputCRS) == 0 {
		config.OutputCRS = DefaultCRS
	}
	if len(config.Variable) == 0 {
		config.Variable = DefaultVariable
	}
	if len(config.CloudFlag) == 0 {
		config.CloudFlag = DefaultCloudFlag
	}
	if config.DropVariables == nil {
		config.DropVariables = []string{"palette"}
	}
	if config.Profile.BlockXSize <= 0 {
		config.Profile.BlockXSize = DefaultBlockSize
	}
	if config.Profile.BlockYSize <= 0 {
		config.Profile.BlockYSize = DefaultBlockSize
	}
	if len(config.Profile.Compress) == 0 {
		config.Profile.Compress = DefaultCompress
	}
	if len(config.Profile.Interleave) == 0 {
		config.Profile.Interleave = DefaultInterleave
	}
}

// Variables returns the exported Level-2 variables, target first. It is
// nil when no extra variables are set and the whole geophysical group
// is exported.
func (config *Config) Variables() []string {
	if len(config.ExtraVariables) == 0 {
		return nil
	}
	vars := []string{config.Variable}
	for _, v := range config.ExtraVariables {
		if v != config.Variable {
			vars = append(vars, v)
		}
	}
	return vars
}

// CrawlRoot is the directory the jobs walk. Output paths are still
// built relative to SourceRoot.
func (config *Config) CrawlRoot() string {
	if len(strings.TrimSpace(config.WalkRoot)) == 0 {
		return config.SourceRoot
	}
	return config.WalkRoot
}

// Validate checks the settings a job needs. requireBoundary is set by
// the crop job.
func (config *Config) Validate(requireBoundary bool) error {
	if len(strings.TrimSpace(config.SourceRoot)) == 0 {
		return fmt.Errorf("source_root is not set")
	}
	if len(strings.TrimSpace(config.OutputRoot)) == 0 {
		return fmt.Errorf("output_root is not set")
	}
	if len(strings.TrimSpace(config.WalkRoot)) > 0 {
		rel, err := filepath.Rel(filepath.Clean(config.SourceRoot), filepath.Clean(config.WalkRoot))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("walk_root %s is not under source_root %s", config.WalkRoot, config.SourceRoot)
		}
	}
	if requireBoundary && len(strings.TrimSpace(config.BoundaryPath)) == 0 {
		return fmt.Errorf("boundary_path is not set")
	}
	if config.Threshold < 0 || config.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0, 1]: %v", config.Threshold)
	}
	if config.Profile.BlockXSize%16 != 0 || config.Profile.BlockYSize%16 != 0 {
		return fmt.Errorf("tile block sizes must be multiples of 16: %dx%d", config.Profile.BlockXSize, config.Profile.BlockYSize)
	}
	return nil
}

// LoadConfigFile unmarshals the YAML document at configFile on top of
// the defaults. An empty configFile yields the defaults only.
func LoadConfigFile(configFile string) (*Config, error) {
	config := &Config{Threshold: math.NaN()}
	if len(configFile) > 0 {
		cfg, err := ioutil.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
		}

		err = yaml.Unmarshal(cfg, config)
		if err != nil {
			return nil, fmt.Errorf("Error at YAML parsing config document: %s. Error: %v", configFile, err)
		}
	}
	config.applyDefaults()
	return config, nil
}
