// Package config loads the YAML configuration shared by the train and serve
// commands.
package config

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/cropyield/features"
	"github.com/YuminosukeSato/cropyield/pkg/errors"
	"github.com/YuminosukeSato/cropyield/pkg/log"
)

// Config holds the cropyield configuration.
type Config struct {
	SchemaPath string          `yaml:"schema_path"`
	Data       DataConfig      `yaml:"data"`
	Features   FeaturesConfig  `yaml:"features"`
	Training   TrainingConfig  `yaml:"training"`
	Artifacts  ArtifactsConfig `yaml:"artifacts"`
	HTTP       HTTPConfig      `yaml:"http"`
	Logging    LoggingConfig   `yaml:"logging"`
}

// DataConfig locates the training data. Either RawPath is set, and the job
// splits it into TrainPath and TestPath, or both split files already exist.
type DataConfig struct {
	RawPath   string  `yaml:"raw_path"`
	TrainPath string  `yaml:"train_path"`
	TestPath  string  `yaml:"test_path"`
	TestRatio float64 `yaml:"test_ratio"`
	Seed      int64   `yaml:"seed"`
}

// FeaturesConfig holds feature engineering settings.
type FeaturesConfig struct {
	FlagColumns []string `yaml:"flag_columns"`
}

// TrainingConfig holds model fitting settings.
type TrainingConfig struct {
	FitIntercept      *bool `yaml:"fit_intercept"`
	ParallelThreshold int   `yaml:"parallel_threshold"`
	SavePlot          *bool `yaml:"save_plot"`
}

// ArtifactsConfig holds the artifact root directory.
type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Load reads, expands, defaults and validates the configuration at path.
// A relative schema_path is resolved against the directory of path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	if cfg.SchemaPath != "" && !filepath.IsAbs(cfg.SchemaPath) {
		cfg.SchemaPath = filepath.Join(filepath.Dir(path), cfg.SchemaPath)
	}
	return cfg, nil
}

// Parse decodes a YAML document after substituting environment variables.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.SchemaPath == "" {
		c.SchemaPath = "schema.yaml"
	}
	if c.Data.TestRatio == 0 {
		c.Data.TestRatio = 0.2
	}
	if c.Data.Seed == 0 {
		c.Data.Seed = 42
	}
	if c.Artifacts.Dir == "" {
		c.Artifacts.Dir = "artifacts"
	}
	if c.Data.RawPath != "" {
		if c.Data.TrainPath == "" {
			c.Data.TrainPath = filepath.Join(c.Artifacts.Dir, "data_ingestion", "train.csv")
		}
		if c.Data.TestPath == "" {
			c.Data.TestPath = filepath.Join(c.Artifacts.Dir, "data_ingestion", "test.csv")
		}
	}
	if c.Features.FlagColumns == nil {
		c.Features.FlagColumns = append([]string(nil), features.DefaultFlagColumns...)
	}
	if c.Training.FitIntercept == nil {
		t := true
		c.Training.FitIntercept = &t
	}
	if c.Training.SavePlot == nil {
		t := true
		c.Training.SavePlot = &t
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Data.RawPath == "" && (c.Data.TrainPath == "" || c.Data.TestPath == "") {
		return errors.New("data.raw_path or both data.train_path and data.test_path are required")
	}
	if c.Data.TestRatio <= 0 || c.Data.TestRatio >= 1 {
		return errors.Newf("data.test_ratio must be in (0, 1), got %v", c.Data.TestRatio)
	}
	if c.Training.ParallelThreshold < 0 {
		return errors.Newf("training.parallel_threshold must not be negative, got %d", c.Training.ParallelThreshold)
	}
	for _, col := range c.Features.FlagColumns {
		if strings.TrimSpace(col) == "" {
			return errors.New("features.flag_columns must not contain empty names")
		}
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.Newf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return errors.Newf("logging.format must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	return nil
}

// NewLogger builds the logger described by the logging section.
func (l LoggingConfig) NewLogger(w io.Writer) (log.Logger, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	if l.Format == "console" {
		return log.NewConsoleLogger(w, level), nil
	}
	return log.NewZerologLogger(w, level), nil
}

// ReadTimeout returns the read timeout as a duration.
func (h HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeoutSec) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (h HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeoutSec) * time.Second
}

// ShutdownTimeout returns the graceful shutdown timeout as a duration.
func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownSec) * time.Second
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
