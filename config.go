package cunit

import (
	"fmt"
	"github.com/BurntSushi/toml"
	"os"
	"path/filepath"
)

const (
	// DefaultBootstrap is the identifier of the unit which starts the VM.
	DefaultBootstrap = "ModuleLoader.cu"
	// DefaultEntry is the constructor symbol looked up in object artifacts.
	DefaultEntry = "NewCompilationUnit"
	// SearchPathEnv supplies the bootstrap search path when the config does not.
	SearchPathEnv = "CUNIT_PATH"
)

// Format selects how raw artifacts are materialized.
type Format string

const (
	FormatAuto     Format = "auto"
	FormatEnvelope Format = "envelope"
	FormatObject   Format = "object"
)

// Config of a Runtime.
type Config struct {
	Bootstrap     string   `toml:"bootstrap"`
	SearchPath    string   `toml:"search_path"`
	Format        Format   `toml:"format"`
	Entry         string   `toml:"entry"`
	Debug         bool     `toml:"debug"`
	SharedObjects []string `toml:"shared_objects"` //shared libraries whose symbols object artifacts may link against
}

// LoadConfig parses a toml config file, then fills defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var c Config
	if err = toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err = c.Defaults(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &c, nil
}

// DefaultConfig is the config used without any file.
func DefaultConfig() *Config {
	c := new(Config)
	_ = c.Defaults()
	return c
}

// Defaults fills empty fields and validates the format.
//
// An empty search path is taken from CUNIT_PATH, then from the directory of the running executable.
func (c *Config) Defaults() error {
	if c.Bootstrap == "" {
		c.Bootstrap = DefaultBootstrap
	}
	if c.Entry == "" {
		c.Entry = DefaultEntry
	}
	if c.Format == "" {
		c.Format = FormatAuto
	}
	switch c.Format {
	case FormatAuto, FormatEnvelope, FormatObject:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.SearchPath == "" {
		c.SearchPath = os.Getenv(SearchPathEnv)
	}
	if c.SearchPath == "" {
		if exe, err := os.Executable(); err == nil {
			c.SearchPath = filepath.Dir(exe)
		}
	}
	return nil
}
