// Package config loads the YAML configuration shared by the server and the
// batch scanner.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sdeoras/cropguard/preprocess"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration.
type Config struct {
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`

	Model      Model      `yaml:"model"`
	Preprocess Preprocess `yaml:"preprocess"`

	// Rules is a YAML treatment rule table; empty uses the built-in one.
	Rules string `yaml:"rules"`
	// TopK is the number of ranked labels returned with each recommendation.
	TopK int `yaml:"top_k"`
}

// Model locates the classifier artifact and names its graph endpoints.
type Model struct {
	Location string `yaml:"location"`
	Labels   string `yaml:"labels"` // empty uses the built-in cocoa/maize labels
	InputOp  string `yaml:"input_op"`
	OutputOp string `yaml:"output_op"`
}

// Preprocess sets the pixel scaling (v - Mean) / Scale and the largest
// accepted input image.
type Preprocess struct {
	Mean      float32 `yaml:"mean"`
	Scale     float32 `yaml:"scale"`
	MaxPixels int64   `yaml:"max_pixels"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Host:     ":7001",
		LogLevel: "info",
		Model: Model{
			Location: "model/cropguard_graph.pb",
			InputOp:  "input",
			OutputOp: "output",
		},
		Preprocess: Preprocess{Mean: 0, Scale: 1, MaxPixels: preprocess.DefaultMaxPixels},
		TopK:       5,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !strings.Contains(c.Host, ":") {
		return errors.New("host requires a port number")
	}
	if c.Model.Location == "" {
		return errors.New("model.location is required")
	}
	if c.Model.InputOp == "" || c.Model.OutputOp == "" {
		return errors.New("model.input_op and model.output_op are required")
	}
	if c.Preprocess.Scale == 0 {
		return errors.New("preprocess.scale must be non-zero")
	}
	if c.Preprocess.MaxPixels <= 0 {
		return errors.New("preprocess.max_pixels must be positive")
	}
	if c.TopK < 0 {
		return errors.New("top_k must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ApplyLogLevel sets the logrus level from the config.
func (c *Config) ApplyLogLevel() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warn("keeping log level: ", err)
		return
	}
	logrus.SetLevel(level)
}
