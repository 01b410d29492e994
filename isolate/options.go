package isolate

import (
	"github.com/caffeineduck/graaliso/internal/osthread"
	"go.uber.org/zap"
)

// Option configures an Isolate at creation time.
type Option func(*config)

type config struct {
	name     string
	logger   *zap.Logger
	threadID func() int64
}

func defaultConfig() config {
	return config{
		name:     "default",
		threadID: osthread.ID,
	}
}

// WithLogger sets the logger receiving lifecycle events: create, attach,
// detach, teardown and, at debug level, every call entering and leaving the
// isolate.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithName labels the isolate in log output.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithThreadID replaces the function identifying the calling OS thread. It
// must return a stable value while the goroutine is locked to its thread.
func WithThreadID(fn func() int64) Option {
	return func(c *config) {
		if fn != nil {
			c.threadID = fn
		}
	}
}
