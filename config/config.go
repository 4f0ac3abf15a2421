// Package config loads facade options from a YAML document with an
// environment-variable overlay, the way the teacher's cmd package layers
// file-based configuration with env vars before handing it to the run
// command.
package config

import (
	"fmt"
	"os"

	"github.com/mstoykov/envconfig"
	"gopkg.in/yaml.v3"
)

// Config is the facade's run configuration: the entries to prebake, the
// base id they resolve against, a list of fetcher roots, and the
// diagnostics level. Roots is loaded but not enforced: the filesystem
// fetcher reads any path it is given.
type Config struct {
	Entries  []string `yaml:"entries" envconfig:"PREBAKE_ENTRIES"`
	BaseID   string   `yaml:"baseId" envconfig:"PREBAKE_BASE_ID"`
	Roots    []string `yaml:"roots" envconfig:"PREBAKE_ROOTS"`
	LogLevel string   `yaml:"logLevel" envconfig:"PREBAKE_LOG_LEVEL"`
}

// Default returns a Config with the same defaults the CLI falls back to
// when neither a file nor an env var supplies a value.
func Default() Config {
	return Config{
		BaseID:   "file:///",
		LogLevel: "info",
	}
}

// Apply layers override on top of c: a non-zero field in override wins,
// the way the teacher's Config.Apply merges CLI/file/env layers.
func (c Config) Apply(override Config) Config {
	if len(override.Entries) > 0 {
		c.Entries = override.Entries
	}
	if override.BaseID != "" {
		c.BaseID = override.BaseID
	}
	if len(override.Roots) > 0 {
		c.Roots = override.Roots
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	return c
}

// ReadFile loads a Config from a YAML document at path.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// FromEnv overlays process environment variables onto base using the
// envconfig tags above, mirroring the teacher's cloudapi.Config env
// overlay (envconfig.Process with an explicit prefix and lookup func so
// tests can substitute a fake environment).
func FromEnv(base Config, lookup func(string) (string, bool)) (Config, error) {
	envCfg := Config{}
	var err error
	if lookup != nil {
		err = envconfig.Process("", &envCfg, lookup)
	} else {
		err = envconfig.Process("", &envCfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: env overlay: %w", err)
	}
	return base.Apply(envCfg), nil
}

// Load reads path (if non-empty) then overlays the process environment,
// returning Default() layered under both.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Apply(fileCfg)
	}
	return FromEnv(cfg, nil)
}
