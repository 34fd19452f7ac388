package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultFilename = "config.json"

// Analysis holds the tunable parameters of the stiffness scan.
type Analysis struct {
	R2Threshold    float64 `json:"stiffness_r2_threshold"`
	WindowFraction float64 `json:"stiffness_window_fraction"`
	MinWindow      int     `json:"stiffness_min_window"`
}

// Groups lists the subject ids of each surgical treatment arm. Control
// (non-operated) membership is implicit in the filename condition.
type Groups struct {
	TFLIDs []string `json:"TFL_IDS"`
	MSCIDs []string `json:"MSC_IDS"`
}

// Config is the study configuration file: logical path names, group
// membership, and the analysis parameters.
type Config struct {
	DataPaths map[string]string `json:"data_paths"`
	Groups    Groups            `json:"groups"`
	Analysis  Analysis          `json:"analysis"`

	baseDir string
}

// Load reads a config.json and fills in parameter defaults. Relative paths
// in data_paths resolve against the config file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.baseDir = filepath.Dir(abs)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Analysis.R2Threshold == 0 {
		c.Analysis.R2Threshold = 0.99
	}
	if c.Analysis.WindowFraction == 0 {
		c.Analysis.WindowFraction = 0.1
	}
	if c.Analysis.MinWindow == 0 {
		c.Analysis.MinWindow = 5
	}
}

// Path resolves a logical path name from data_paths. The empty string means
// the name is not configured.
func (c *Config) Path(name string) string {
	p, ok := c.DataPaths[name]
	if !ok {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// DataDir is the directory of selected test CSV files. ResultsDir is where
// artifacts are written.
func (c *Config) DataDir() string    { return c.Path("selected_data_dir") }
func (c *Config) ResultsDir() string { return c.Path("results_dir") }
