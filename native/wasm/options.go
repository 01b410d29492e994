package wasm

import (
	"io"
	"os"
	"path/filepath"
)

// Option configures how the module is loaded.
type Option func(*config)

type config struct {
	diskCache        bool
	cacheDir         string
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = wazero default (4GB)
	stdout           io.Writer
	stderr           io.Writer
	env              map[string]string
}

func defaultConfig() config {
	return config{
		env: make(map[string]string),
	}
}

// WithDiskCache enables a persistent compilation cache. Optionally provide a
// custom directory; otherwise ~/.cache/graaliso or XDG_CACHE_HOME/graaliso
// is used.
func WithDiskCache(dir ...string) Option {
	return func(c *config) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithMemoryLimit caps the module's linear memory. Each page is 64KB.
func WithMemoryLimit(pages uint32) Option {
	return func(c *config) {
		c.memoryLimitPages = pages
	}
}

// WithOutput routes the module's stdout and stderr.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(c *config) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithEnv sets an environment variable visible to the module.
func WithEnv(key, value string) Option {
	return func(c *config) {
		c.env[key] = value
	}
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "graaliso")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "graaliso")
	}
	return filepath.Join(os.TempDir(), "graaliso-cache")
}
