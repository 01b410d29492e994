// Package config loads the graaliso configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendSim   = "sim"
	BackendWASM  = "wasm"
	BackendGraal = "graal"
)

// ErrUnknownBackend is returned for a backend name other than sim, wasm or graal.
var ErrUnknownBackend = errors.New("unknown backend")

// Config is the file format:
//
//	backend: wasm
//	wasm:
//	  module: ./libdxfeed.wasm
//	  memory_limit_pages: 256
//	  env:
//	    DXFEED_HOME: /opt/dxfeed
//	log:
//	  level: info
//	properties:
//	  dxfeed.address: demo.dxfeed.com:7300
type Config struct {
	Backend    string            `yaml:"backend"`
	WASM       WASM              `yaml:"wasm"`
	Log        Log               `yaml:"log"`
	Properties map[string]string `yaml:"properties"`
}

// WASM configures the WebAssembly backend.
type WASM struct {
	Module           string            `yaml:"module"`
	MemoryLimitPages uint32            `yaml:"memory_limit_pages"`
	Cache            bool              `yaml:"cache"`
	Env              map[string]string `yaml:"env"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend: BackendSim,
		Log:     Log{Level: "warn"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of the defaults and validates the result.
// Unknown fields are rejected; an empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the backend name and the settings it requires.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendGraal:
	case BackendWASM:
		if c.WASM.Module == "" {
			return errors.New("wasm backend requires wasm.module")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}
