// Package config loads and watches the service configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v2"

	"spiraldemo/ml"
)

type Config struct {
	Http struct {
		Port           int           `yaml:"port"`
		Timeout        time.Duration `yaml:"timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"log"`
	Spiral     Spiral     `yaml:"spiral"`
	Evaluation Evaluation `yaml:"evaluation"`
}

// Spiral holds the dataset served by the root endpoint.
type Spiral struct {
	Samples   int     `yaml:"samples"`
	Classes   int     `yaml:"classes"`
	Seed      *int64  `yaml:"seed"`
	Spread    float64 `yaml:"spread"`
	Scale     float64 `yaml:"scale"`
	Noise     float64 `yaml:"noise"`
	CacheSize int     `yaml:"cache_size"`
}

// Evaluation holds the probabilities and targets scored on every root request.
// OneHotTargets wins over Targets when both are set.
type Evaluation struct {
	Probabilities [][]float64 `yaml:"probabilities"`
	Targets       []int       `yaml:"targets"`
	OneHotTargets [][]float64 `yaml:"one_hot_targets"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.Http.Port = 8000
	c.Http.Timeout = 30 * time.Second
	c.Http.AllowedOrigins = []string{"*"}
	c.Log.Level = "info"
	c.Log.MaxSizeMB = 100
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 28

	s := ml.DefaultSpiralConfig()
	c.Spiral = Spiral{
		Samples:   s.Samples,
		Classes:   s.Classes,
		Spread:    s.Spread,
		Scale:     s.Scale,
		Noise:     s.Noise,
		CacheSize: 64,
	}

	c.Evaluation.Probabilities = make([][]float64, len(ml.DefaultProbabilities))
	for i, row := range ml.DefaultProbabilities {
		c.Evaluation.Probabilities[i] = append([]float64(nil), row...)
	}
	c.Evaluation.Targets = append([]int(nil), ml.DefaultTargets.Labels...)
	return &c
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks every section that can be checked without side effects.
func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.Http.Timeout)
	}
	if c.Spiral.CacheSize <= 0 {
		return fmt.Errorf("spiral.cache_size must be positive, got %d", c.Spiral.CacheSize)
	}
	if err := c.SpiralConfig().Validate(); err != nil {
		return fmt.Errorf("spiral: %w", err)
	}
	if _, err := ml.Evaluate(c.Evaluation.Probabilities, c.EvaluationTargets()); err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}
	return nil
}

// SpiralConfig converts the spiral section into generator parameters.
func (c *Config) SpiralConfig() ml.SpiralConfig {
	return ml.SpiralConfig{
		Samples: c.Spiral.Samples,
		Classes: c.Spiral.Classes,
		Seed:    c.Spiral.Seed,
		Spread:  c.Spiral.Spread,
		Scale:   c.Spiral.Scale,
		Noise:   c.Spiral.Noise,
	}
}

// EvaluationTargets converts the evaluation section into targets.
func (c *Config) EvaluationTargets() ml.Targets {
	if len(c.Evaluation.OneHotTargets) > 0 {
		return ml.Targets{OneHot: c.Evaluation.OneHotTargets}
	}
	return ml.Targets{Labels: c.Evaluation.Targets}
}

// RestartRequired lists the keys that differ between old and next but only
// take effect at startup. A reload applies the spiral and evaluation defaults.
func RestartRequired(old, next *Config) []string {
	var keys []string
	changed := func(key string, differ bool) {
		if differ {
			keys = append(keys, key)
		}
	}
	changed("http.port", old.Http.Port != next.Http.Port)
	changed("http.timeout", old.Http.Timeout != next.Http.Timeout)
	changed("http.allowed_origins", !slices.Equal(old.Http.AllowedOrigins, next.Http.AllowedOrigins))
	changed("database.path", old.Database.Path != next.Database.Path)
	changed("log", old.Log != next.Log)
	changed("spiral.cache_size", old.Spiral.CacheSize != next.Spiral.CacheSize)
	return keys
}
