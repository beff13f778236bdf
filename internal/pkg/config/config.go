// Package config handles nar.toml host configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up next to the program
const FileName = "nar.toml"

// LibsPathEnv overrides the native packages search path
const LibsPathEnv = "NAR_LIBS_PATH"

type Config struct {
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`
}

type Runtime struct {
	LibsPath      string `toml:"libs-path"`
	AbortOnError  bool   `toml:"abort-on-error"`
	ArenaCapacity int    `toml:"arena-capacity"`
	// Entry overrides the entry point stored in the program
	Entry string `toml:"entry"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses configuration file at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Runtime.ArenaCapacity < 0 {
		return nil, fmt.Errorf("invalid arena capacity %d in %s", c.Runtime.ArenaCapacity, path)
	}
	if c.Runtime.LibsPath != "" && !filepath.IsAbs(c.Runtime.LibsPath) {
		c.Runtime.LibsPath = filepath.Join(filepath.Dir(path), c.Runtime.LibsPath)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Runtime.ArenaCapacity == 0 {
		c.Runtime.ArenaCapacity = 256
	}
}

// LibsPath returns the native packages search path for program at programPath.
// Environment takes precedence over the file, the program directory is the fallback.
func (c *Config) LibsPath(programPath string) string {
	if env := os.Getenv(LibsPathEnv); env != "" {
		return env
	}
	if c.Runtime.LibsPath != "" {
		return c.Runtime.LibsPath
	}
	return filepath.Dir(programPath)
}
