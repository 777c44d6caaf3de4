// Package config loads scheduler settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/lukawerner/MySimpleOS/core"
)

// Config is the top-level configuration of a scheduling session.
type Config struct {
	Policy  string  `yaml:"policy"`
	Workers int     `yaml:"workers"`
	Arena   Arena   `yaml:"arena"`
	Log     Log     `yaml:"log"`
	Tracing Tracing `yaml:"tracing"`
	Metrics Metrics `yaml:"metrics"`
}

type Arena struct {
	Capacity int `yaml:"capacity"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type Tracing struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"` // empty means stdout
}

type Metrics struct {
	Namespace    string        `yaml:"namespace"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Policy:  "FCFS",
		Workers: core.DefaultWorkerCount,
		Arena:   Arena{Capacity: core.DefaultArenaCapacity},
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Namespace: "mysimpleos", PollInterval: time.Second},
	}
}

// Load reads and validates a YAML file. Keys missing from the file keep
// their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML over Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field that has a constrained domain.
func (c Config) Validate() error {
	if _, err := core.ParsePolicy(c.Policy); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Arena.Capacity < 1 {
		return fmt.Errorf("arena capacity must be at least 1, got %d", c.Arena.Capacity)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// SchedulingPolicy returns the parsed policy. Call Validate first.
func (c Config) SchedulingPolicy() core.Policy {
	p, _ := core.ParsePolicy(c.Policy)
	return p
}

// NewLogger builds a logrus logger honoring Log.
func (c Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l := logrus.New()
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
